package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dudu/beautycam/internal/config"
	"github.com/dudu/beautycam/internal/logging"
)

// Version is the application version.
const Version = "0.3.0"

// cfg starts from the environment; flags override it
var cfg = config.FromEnv()

var rootCmd = &cobra.Command{
	Use:          "beautycam",
	Short:        "Live beauty camera with face-aware filters, stickers and presets",
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.InitLogger(cfg.LogLevel)
		return cfg.Validate()
	},
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")

	flags.StringVar(&cfg.PresetBackend, "presets", cfg.PresetBackend, "Preset store: memory, sqlite or redis")
	flags.StringVar(&cfg.SQLitePath, "sqlite", cfg.SQLitePath, "SQLite database file for presets")
	flags.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address for presets")
	flags.StringVar(&cfg.RedisPassword, "redis-password", cfg.RedisPassword, "Redis password")
	flags.IntVar(&cfg.RedisDB, "redis-db", cfg.RedisDB, "Redis database number")
	flags.StringVar(&cfg.RedisNamespace, "redis-namespace", cfg.RedisNamespace, "Redis key namespace")
	flags.StringVar(&cfg.ControlAddr, "control", cfg.ControlAddr, "Control API listen address (empty disables)")
}
