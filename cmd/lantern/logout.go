package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lantern-irc/lantern/pkg/api"
)

func logoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Invalidate the session and clear local state",
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			setupLogging(verbose)
			configDir, _ := cmd.Flags().GetString("config")
			cfg, err := loadConfig(configDir)
			if err != nil {
				return err
			}

			store, err := openStateStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			session, err := loadSession(store)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			apiCfg := api.DefaultConfig()
			apiCfg.BaseURL = cfg.API
			client := api.NewClient(apiCfg)
			client.SetSession(session)
			if err := client.Logout(ctx); err != nil {
				// Clear local state regardless; the token may already
				// be invalid server-side.
				fmt.Printf("Warning: server logout failed: %s\n", err)
			}

			store.Delete(sessionKey)
			store.Delete("engine")
			fmt.Println("Logged out.")
			return nil
		},
	}
	return cmd
}
