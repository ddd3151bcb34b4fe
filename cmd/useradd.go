package cmd

import (
	"context"
	"fmt"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/oneweb/helpdesk-chat/internal/config"
	"github.com/oneweb/helpdesk-chat/internal/security"
	"github.com/oneweb/helpdesk-chat/internal/storage/pg"
)

func userAddCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "useradd <login>",
		Short: "Create an agent account",
		Long:  "Creates an agent account in the configured Postgres database. Prompts for the password on the terminal.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			login := args[0]
			if name == "" {
				name = login
			}

			godotenv.Load()
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Database.PostgresDSN == "" {
				return fmt.Errorf("HELPDESK_POSTGRES_DSN environment variable is not set")
			}

			fmt.Print("Password: ")
			password, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Println()
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			if len(password) == 0 {
				return fmt.Errorf("password must not be empty")
			}

			db, err := pg.OpenDB(cfg.Database.PostgresDSN)
			if err != nil {
				return fmt.Errorf("open postgres: %w", err)
			}
			defer db.Close()

			stores := pg.NewStores(db)
			u, err := security.CreateUser(context.Background(), stores.Users, name, login, string(password), cfg.Security.HashAlgorithm)
			if err != nil {
				return err
			}

			fmt.Printf("created user %s (%s)\n", u.Login, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (default: the login)")
	return cmd
}
