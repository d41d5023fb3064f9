package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lantern-irc/lantern/internal/config"
	"github.com/lantern-irc/lantern/pkg/api"
)

func loginCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store a session token",
		Long: `Log in to the gateway. The session token is stored in the state
directory and picked up by 'lantern connect'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			setupLogging(verbose)
			configDir, _ := cmd.Flags().GetString("config")
			cfg, err := loadConfig(configDir)
			if err != nil {
				return err
			}
			return runLogin(cfg, email)
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email (prompted if omitted)")

	return cmd
}

func loadConfig(dir string) (*config.Config, error) {
	if dir == "" {
		dir = "."
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runLogin(cfg *config.Config, email string) error {
	if email == "" {
		fmt.Print("Email: ")
		if _, err := fmt.Scanln(&email); err != nil {
			return fmt.Errorf("read email: %w", err)
		}
	}
	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	apiCfg := api.DefaultConfig()
	apiCfg.BaseURL = cfg.API
	client := api.NewClient(apiCfg)

	token, err := client.RequestAuthToken(ctx)
	if err != nil {
		return fmt.Errorf("request auth token: %w", err)
	}
	res, err := client.Login(ctx, email, string(password), token.Token)
	if err != nil {
		return err
	}

	if err := saveSession(cfg, res.Session); err != nil {
		return err
	}
	fmt.Printf("Logged in as uid %d. Session stored in %s.\n", res.UID, cfg.State.Dir)
	return nil
}
