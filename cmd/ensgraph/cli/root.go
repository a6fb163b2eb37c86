package cli

import (
	"fmt"
	"os"

	"ens-identity-graph/internal/infrastructure/config"
	"ens-identity-graph/internal/infrastructure/logger"

	"github.com/spf13/cobra"
)

var (
	cfgPath string
	rootCmd = &cobra.Command{
		Use:           "ensgraph",
		Short:         "ENS identity graph service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Setup registers the commands and runs the one selected on the command line
func Setup() error {
	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(CacheCmd())
	rootCmd.AddCommand(EdgesCmd())
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ./config.yaml, ./config/config.yaml or /etc/ens-identity-graph/config.yaml)")

	return rootCmd.Execute()
}

// loadConfig loads the --config file when given, otherwise searches the default paths
func loadConfig() (*config.Config, error) {
	if cfgPath != "" {
		if _, err := os.Stat(cfgPath); err != nil {
			return nil, fmt.Errorf("config file %s: %w", cfgPath, err)
		}
		return config.LoadFile(cfgPath)
	}
	return config.Load()
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	log, err := logger.NewLogger(cfg.App.LogLevel, cfg.App.LogEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, nil
}
