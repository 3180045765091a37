package main

import (
	"github.com/spf13/cobra"

	"github.com/praxis-labs/veracity/internal/model"
	"github.com/praxis-labs/veracity/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect verification runs",
}

var runsListFlags struct {
	companyID string
	status    string
	limit     int
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List verification runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, err := buildEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		runs, err := eng.store.ListRuns(ctx, store.RunFilter{
			CompanyID: runsListFlags.companyID,
			Status:    model.RunStatus(runsListFlags.status),
			Limit:     runsListFlags.limit,
		})
		if err != nil {
			return err
		}
		return printJSON(runs)
	},
}

var runsGetCmd = &cobra.Command{
	Use:   "get <run-id>",
	Short: "Show a verification run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, err := buildEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		run, err := eng.store.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(run)
	},
}

var runsResultCmd = &cobra.Command{
	Use:   "result <company-id>",
	Short: "Show a company's most recent verification result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, err := buildEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		run, err := eng.orch.LatestResult(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(run)
	},
}

var runsCancelCmd = &cobra.Command{
	Use:   "cancel <run-id>",
	Short: "Cancel an in-flight run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, err := buildEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		return eng.orch.Cancel(ctx, args[0])
	},
}

func init() {
	runsListCmd.Flags().StringVar(&runsListFlags.companyID, "company", "", "filter by company id")
	runsListCmd.Flags().StringVar(&runsListFlags.status, "status", "", "filter by status")
	runsListCmd.Flags().IntVar(&runsListFlags.limit, "limit", 20, "max runs to return")

	runsCmd.AddCommand(runsListCmd, runsGetCmd, runsResultCmd, runsCancelCmd)
	rootCmd.AddCommand(runsCmd)
}
