package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"MentionScanner/internal/config"
	"MentionScanner/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "mentionscanner",
	Short:         "Watch feeds and chats for keyword mentions, classify and store them",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger shared by every command.
// Logs go to stderr so stdout stays clean for command output.
func setup() (config.Config, *slog.Logger) {
	cfg := config.Load()
	logger := logging.NewWithWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)
	return cfg, logger
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
