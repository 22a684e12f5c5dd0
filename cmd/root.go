package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/citystrata/citystrata/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "citystrata",
	Short: "Statistical-area evacuation planning service",
	Long:  "Loads a city's statistical areas and evacuation resources, assigns resources to areas, and serves area summaries and evacuation capacity analyses over HTTP.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
