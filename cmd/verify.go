package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/praxis-labs/veracity/internal/jobs"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <company-id>",
	Short: "Verify a company and print the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, err := buildEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		run, err := eng.orch.Verify(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(run)
	},
}

var submitTimeout time.Duration

var submitCmd = &cobra.Command{
	Use:   "submit <company-id>",
	Short: "Queue a verification in the background",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, err := buildEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		runner, stopRunner, err := buildRunner(cfg, eng.orch)
		if err != nil {
			return err
		}
		defer stopRunner()

		jobID, err := runner.Submit(ctx, args[0], submitTimeout)
		if err != nil {
			return err
		}
		zap.L().Info("verification submitted",
			zap.String("job_id", jobID),
			zap.String("company_id", args[0]))

		// The local backend runs in-process, so hold on until the job lands.
		if cfg.Jobs.Backend == "" || cfg.Jobs.Backend == "local" {
			stopRunner()
			job, err := runner.Status(ctx, jobID)
			if err != nil {
				return err
			}
			return printJSON(job)
		}
		return printJSON(map[string]string{"job_id": jobID})
	},
}

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Inspect background verification jobs",
}

var jobStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show a job's state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, err := buildEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		runner, _, err := buildRunner(cfg, eng.orch)
		if err != nil {
			return err
		}
		job, err := runner.Status(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(job)
	},
}

var jobCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a running job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, err := buildEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		runner, _, err := buildRunner(cfg, eng.orch)
		if err != nil {
			return err
		}
		return runner.Cancel(ctx, args[0])
	},
}

func init() {
	submitCmd.Flags().DurationVar(&submitTimeout, "timeout", jobs.DefaultTimeout, "verification timeout")
	jobCmd.AddCommand(jobStatusCmd, jobCancelCmd)
	rootCmd.AddCommand(verifyCmd, submitCmd, jobCmd)
}
