package main

import (
	"github.com/spf13/cobra"

	"github.com/praxis-labs/veracity/internal/correction"
	"github.com/praxis-labs/veracity/internal/model"
)

var correctionsCmd = &cobra.Command{
	Use:   "corrections",
	Short: "Manage data corrections",
}

var correctionCreateFlags struct {
	companyID   string
	dataPointID string
	field       string
	fieldType   string
	value       string
	reason      string
	correctedBy string
}

var correctionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Propose a correction to a company field",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, err := buildEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		current, err := eng.corrections.CurrentValue(ctx,
			correctionCreateFlags.companyID,
			correctionCreateFlags.dataPointID,
			correctionCreateFlags.field)
		if err != nil {
			return err
		}
		if correctionCreateFlags.value == current {
			return model.NewValidationError("correction is a no-op: %q is already the value of %s",
				correctionCreateFlags.value, correctionCreateFlags.field)
		}

		c, err := eng.corrections.Create(ctx, correction.CreateRequest{
			CompanyID:   correctionCreateFlags.companyID,
			DataPointID: correctionCreateFlags.dataPointID,
			FieldName:   correctionCreateFlags.field,
			FieldType:   correctionCreateFlags.fieldType,
			NewValue:    correctionCreateFlags.value,
			Reason:      correctionCreateFlags.reason,
			CorrectedBy: correctionCreateFlags.correctedBy,
		})
		if err != nil {
			return err
		}
		return printJSON(c)
	},
}

var correctionApprover string

var correctionApproveCmd = &cobra.Command{
	Use:   "approve <correction-id>",
	Short: "Approve a pending correction and apply it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, err := buildEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		c, err := eng.corrections.Approve(ctx, args[0], correctionApprover)
		if err != nil {
			return err
		}
		return printJSON(c)
	},
}

var correctionRejectFlags struct {
	rejectedBy string
	reason     string
}

var correctionRejectCmd = &cobra.Command{
	Use:   "reject <correction-id>",
	Short: "Reject a pending correction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, err := buildEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		c, err := eng.corrections.Reject(ctx, args[0],
			correctionRejectFlags.rejectedBy, correctionRejectFlags.reason)
		if err != nil {
			return err
		}
		return printJSON(c)
	},
}

var correctionHistoryField string

var correctionHistoryCmd = &cobra.Command{
	Use:   "history <company-id>",
	Short: "Show correction history for a company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, err := buildEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		history, err := eng.corrections.History(ctx, args[0], correctionHistoryField)
		if err != nil {
			return err
		}
		return printJSON(history)
	},
}

func init() {
	correctionCreateCmd.Flags().StringVar(&correctionCreateFlags.companyID, "company", "", "company id (required)")
	correctionCreateCmd.Flags().StringVar(&correctionCreateFlags.dataPointID, "data-point", "", "data point id the correction targets")
	correctionCreateCmd.Flags().StringVar(&correctionCreateFlags.field, "field", "", "field name (required)")
	correctionCreateCmd.Flags().StringVar(&correctionCreateFlags.fieldType, "field-type", "string", "value type (string, number, boolean, date)")
	correctionCreateCmd.Flags().StringVar(&correctionCreateFlags.value, "value", "", "corrected value")
	correctionCreateCmd.Flags().StringVar(&correctionCreateFlags.reason, "reason", "", "why the correction is needed")
	correctionCreateCmd.Flags().StringVar(&correctionCreateFlags.correctedBy, "by", "", "who proposes the correction (required)")
	_ = correctionCreateCmd.MarkFlagRequired("company")
	_ = correctionCreateCmd.MarkFlagRequired("field")
	_ = correctionCreateCmd.MarkFlagRequired("by")

	correctionApproveCmd.Flags().StringVar(&correctionApprover, "by", "", "who approves (required)")
	_ = correctionApproveCmd.MarkFlagRequired("by")

	correctionRejectCmd.Flags().StringVar(&correctionRejectFlags.rejectedBy, "by", "", "who rejects (required)")
	correctionRejectCmd.Flags().StringVar(&correctionRejectFlags.reason, "reason", "", "rejection reason")
	_ = correctionRejectCmd.MarkFlagRequired("by")

	correctionHistoryCmd.Flags().StringVar(&correctionHistoryField, "field", "", "filter by field name")

	correctionsCmd.AddCommand(correctionCreateCmd, correctionApproveCmd, correctionRejectCmd, correctionHistoryCmd)
	rootCmd.AddCommand(correctionsCmd)
}
