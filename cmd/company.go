package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/praxis-labs/veracity/internal/model"
	"github.com/praxis-labs/veracity/internal/store"
)

var companyCmd = &cobra.Command{
	Use:   "company",
	Short: "Manage companies",
}

var companyCreateFlags struct {
	legalName    string
	regNumber    string
	jurisdiction string
	domain       string
	email        string
	phone        string
}

var companyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a company for verification",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, err := buildEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		c := &model.Company{
			LegalName:          companyCreateFlags.legalName,
			RegistrationNumber: companyCreateFlags.regNumber,
			Jurisdiction:       companyCreateFlags.jurisdiction,
			Domain:             companyCreateFlags.domain,
			Email:              companyCreateFlags.email,
			Phone:              companyCreateFlags.phone,
		}
		if err := eng.store.CreateCompany(ctx, c); err != nil {
			return err
		}
		return printJSON(c)
	},
}

var companyListJurisdiction string

var companyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered companies",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, err := buildEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		companies, err := eng.store.ListCompanies(ctx, store.CompanyFilter{
			Jurisdiction: companyListJurisdiction,
		})
		if err != nil {
			return err
		}
		return printJSON(companies)
	},
}

var companyGetCmd = &cobra.Command{
	Use:   "get <company-id>",
	Short: "Show a company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, err := buildEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		c, err := eng.store.GetCompany(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(c)
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	companyCreateCmd.Flags().StringVar(&companyCreateFlags.legalName, "name", "", "legal name (required)")
	companyCreateCmd.Flags().StringVar(&companyCreateFlags.regNumber, "registration-number", "", "registration number")
	companyCreateCmd.Flags().StringVar(&companyCreateFlags.jurisdiction, "jurisdiction", "", "jurisdiction code")
	companyCreateCmd.Flags().StringVar(&companyCreateFlags.domain, "domain", "", "primary domain")
	companyCreateCmd.Flags().StringVar(&companyCreateFlags.email, "email", "", "contact email")
	companyCreateCmd.Flags().StringVar(&companyCreateFlags.phone, "phone", "", "contact phone")
	_ = companyCreateCmd.MarkFlagRequired("name")

	companyListCmd.Flags().StringVar(&companyListJurisdiction, "jurisdiction", "", "filter by jurisdiction")

	companyCmd.AddCommand(companyCreateCmd, companyListCmd, companyGetCmd)
	rootCmd.AddCommand(companyCmd)
}
