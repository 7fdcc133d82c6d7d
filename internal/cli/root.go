// Package cli implements the carmatch command-line tools.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"carmatch/internal/config"
	"carmatch/internal/logger"
)

var (
	catalogPath string
	logLevel    string
	formatFlag  string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "carmatch",
	Short: "Thai car recommendation dialogue",
	Long:  "Chat with the car recommender in the terminal, run one-shot rankings, and index the catalog.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&catalogPath, "catalog", "c", "", "Catalog CSV path (default: $CATALOG_PATH)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "text", "Output format: json or text")
}

// loadConfig reads the environment and applies the global flags. Sessions
// stay in memory for every command.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		exitErr("load config", err)
	}
	if catalogPath != "" {
		cfg.Catalog.Source = "csv"
		cfg.Catalog.Path = catalogPath
	}
	cfg.Session.Store = "memory"
	cfg.Session.LogTurn = false
	cfg.Logging.Level = logLevel
	cfg.Logging.Format = "console"
	return cfg
}

func newLogger(cfg *config.Config) *zap.Logger {
	log, err := logger.New(cfg.Logging)
	if err != nil {
		exitErr("init logger", err)
	}
	return log
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
