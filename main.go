package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/staff-academy/course-platform/internal/config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "course-platform",
		Short: "Staff video-course platform API",
		Long: `Serves the course catalog, local and Discord login, and per-user
watch progress with course completion and levels.

Running without a subcommand starts the HTTP server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	rootCmd.AddCommand(
		serveCmd(),
		migrateCmd(),
		seedUserCmd(),
		hashPasswordCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger from the configured level
func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
}
