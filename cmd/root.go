package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skyfence/detection-api/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "detection-api",
	Short: "Multimodal drone detection event store",
	Long:  "Records sensor-fusion detection events from the perception pipeline, validates them against physical constraints, and serves filtered, paginated and aggregated views of the event history.",
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
