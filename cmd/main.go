package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mbox-addressbook/internal/config"
	"mbox-addressbook/internal/logging"
	"mbox-addressbook/internal/models"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "addressbook",
	Short: "Build a classified address book from mbox archives",
	Long: `addressbook streams legacy mbox exports, counts who the owner wrote to and
heard from, mines message signatures for contact details, and writes a
deduplicated, classified contact set with per-category CSV exports.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML configuration file")
}

// loadConfig reads the configuration and applies its logging settings.
func loadConfig() *models.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		logging.Log.Fatalf("Error reading configuration file: %v", err)
	}
	if err := logging.Configure(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		logging.Log.Fatalf("Invalid logging configuration: %v", err)
	}
	return cfg
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
