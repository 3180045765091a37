package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/praxis-labs/veracity/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "veracity",
	Short: "Business legitimacy verification engine",
	Long: `veracity verifies that businesses are legitimate operating entities by
cross-referencing DNS records, contact details, and registration data
against external sources, then scoring the result for risk.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
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
