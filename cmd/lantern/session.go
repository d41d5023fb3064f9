package main

import (
	"errors"
	"fmt"

	"github.com/lantern-irc/lantern/internal/config"
	"github.com/lantern-irc/lantern/pkg/state"
)

const sessionKey = "session"

// openStateStore builds the persistence backend named in the config.
func openStateStore(cfg *config.Config) (state.Store, error) {
	switch cfg.State.Backend {
	case "memory":
		return state.NewMemory(), nil
	case "badger":
		return state.OpenBadger(cfg.State.Dir)
	default:
		return state.NewDisk(cfg.State.Dir)
	}
}

func saveSession(cfg *config.Config, session string) error {
	store, err := openStateStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Save(sessionKey, []byte(session)); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func loadSession(store state.Store) (string, error) {
	data, err := store.Load(sessionKey)
	if errors.Is(err, state.ErrNotFound) {
		return "", errors.New("not logged in; run 'lantern login' first")
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
