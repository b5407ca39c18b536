package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/staff-academy/course-platform/internal/auth"
	"github.com/staff-academy/course-platform/internal/config"
	"github.com/staff-academy/course-platform/internal/services"
	"github.com/staff-academy/course-platform/pkg"
)

var errMemoryDriver = errors.New("DB_DRIVER=memory keeps nothing between runs, configure postgres or sqlite")

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.Database.Driver == config.DriverMemory {
				return errMemoryDriver
			}

			db, err := pkg.InitDatabase(cfg)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			if err := pkg.Migrate(db); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema is up to date (%s)\n", cfg.Database.Driver)
			return nil
		},
	}
}

func seedUserCmd() *cobra.Command {
	var (
		username string
		password string
		name     string
	)

	cmd := &cobra.Command{
		Use:   "seed-user",
		Short: "Create a local username/password account",
		Example: `  course-platform seed-user --username alice --password 'correct-horse'
  course-platform seed-user -u bob -p secret --name "Bob Builder"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.Database.Driver == config.DriverMemory {
				return errMemoryDriver
			}

			logger := newLogger(cfg)
			repo, redisClient, err := openRepository(cfg, logger)
			if err != nil {
				return err
			}
			defer repo.Close()
			if redisClient != nil {
				defer redisClient.Close()
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			user, err := services.NewUserService(repo, logger).CreateLocalUser(ctx, username, password, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (id %s)\n", user.DisplayUsername(), user.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "login name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "plain password, stored as a bcrypt hash")
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name (defaults to the username)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the bcrypt hash of a password",
		Long:  "Print the bcrypt hash of a password, for inserting accounts by hand.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
