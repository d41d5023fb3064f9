package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lantern-irc/lantern/internal/config"
	"github.com/lantern-irc/lantern/internal/debugserver"
	"github.com/lantern-irc/lantern/pkg/engine"
	"github.com/lantern-irc/lantern/pkg/reachability"
	"github.com/lantern-irc/lantern/pkg/transport"
	"github.com/lantern-irc/lantern/pkg/upload"
)

func connectCmd() *cobra.Command {
	var debugAddr string

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect to the gateway and sync until interrupted",
		Long: `Connect opens the realtime stream and keeps it alive: reconnecting
with backoff, catching up missed history, and flushing read state.
With a debug address configured it also serves /status, /metrics, and
the attachment upload endpoint locally.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			logger := setupLogging(verbose)
			configDir, _ := cmd.Flags().GetString("config")
			cfg, err := loadConfig(configDir)
			if err != nil {
				return err
			}
			if debugAddr != "" {
				cfg.Debug.Addr = debugAddr
			}
			return runConnect(cfg, logger)
		},
	}

	cmd.Flags().StringVar(&debugAddr, "debug-addr", "", "Debug HTTP listen address (overrides lantern.json)")

	return cmd
}

func runConnect(cfg *config.Config, logger *slog.Logger) error {
	stateStore, err := openStateStore(cfg)
	if err != nil {
		return err
	}
	defer stateStore.Close()

	session, err := loadSession(stateStore)
	if err != nil {
		return err
	}

	prober := reachability.NewProber(probeAddr(cfg), 30*time.Second, nil)

	engCfg := engine.DefaultConfig()
	engCfg.Endpoint = transport.Endpoint{
		Host:     cfg.Gateway.Host,
		Path:     cfg.Gateway.Path,
		Insecure: cfg.Gateway.Insecure,
	}
	engCfg.Session = session
	engCfg.Reachability = prober
	engCfg.BackoffFloor = config.Duration(cfg.Reconnect.Floor, engCfg.BackoffFloor)
	engCfg.BackoffCeiling = config.Duration(cfg.Reconnect.Ceiling, engCfg.BackoffCeiling)
	engCfg.StableAfter = config.Duration(cfg.Reconnect.StableAfter, engCfg.StableAfter)
	engCfg.HeartbeatInterval = config.Duration(cfg.Heartbeat.Interval, engCfg.HeartbeatInterval)
	engCfg.IdleHeartbeatInterval = config.Duration(cfg.Heartbeat.IdleInterval, engCfg.IdleHeartbeatInterval)
	engCfg.Persist = stateStore

	eng := engine.New(engCfg)
	if err := eng.Start(); err != nil {
		return err
	}
	defer eng.Stop()

	// A reachability flip back to reachable retries immediately
	// instead of waiting out the backoff ladder.
	prober.OnChange = func(s reachability.Status) {
		if s == reachability.Reachable {
			eng.Connect()
		}
	}
	prober.Start()
	defer prober.Stop()

	var debug *debugserver.Server
	if cfg.Debug.Addr != "" {
		uploads, err := upload.NewDisk(cfg.Upload.Dir, int64(cfg.Upload.MaxSizeMB)<<20)
		if err != nil {
			return fmt.Errorf("open upload spool: %w", err)
		}
		debug = debugserver.New(cfg.Debug.Addr, eng, uploads, nil)
		go func() {
			if err := debug.Start(); err != nil {
				logger.Warn("debug server failed", "err", err)
			}
		}()
	}

	sub := eng.Subscribe()
	defer sub.Close()
	go tailNotifications(sub, logger)

	eng.Connect()
	logger.Info("connected; press Ctrl-C to stop", "gateway", cfg.Gateway.Host)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	if debug != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		debug.Shutdown(ctx)
		cancel()
	}
	eng.Disconnect()
	return nil
}

// tailNotifications logs the stream as it applies, so connect doubles
// as a protocol tail.
func tailNotifications(sub *engine.Subscription, logger *slog.Logger) {
	for n := range sub.C {
		switch n.Kind {
		case engine.NoteConnectivity:
			if n.Err != nil {
				logger.Warn("connectivity", "state", n.State.String(), "fail_count", n.FailCount, "err", n.Err)
			} else {
				logger.Info("connectivity", "state", n.State.String(), "fail_count", n.FailCount)
			}
		case engine.NoteEvent:
			if n.Record != nil {
				logger.Info("event", "tag", n.Record.Tag, "cid", n.Record.CID, "bid", n.BID, "from", n.Record.Str("from"), "msg", n.Record.Str("msg"))
			}
		case engine.NoteBacklogStarted:
			logger.Info("catch-up started", "buffers", n.Total, "expected_events", n.Expected)
		case engine.NoteBacklogCompleted:
			logger.Info("catch-up complete", "buffers", n.Done, "events", n.Received)
		case engine.NoteBacklogFailed:
			logger.Warn("catch-up failure", "bid", n.BID, "err", n.Err)
		}
	}
}

// probeAddr derives the reachability probe target from the gateway
// host.
func probeAddr(cfg *config.Config) string {
	host := cfg.Gateway.Host
	for i := 0; i < len(host); i++ {
		if host[i] == ':' {
			return host
		}
	}
	if cfg.Gateway.Insecure {
		return host + ":80"
	}
	return host + ":443"
}
