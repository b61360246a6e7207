package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/edinet-cli/internal/company"
)

var companyFile string

var companyCmd = &cobra.Command{
	Use:   "company",
	Short: "Company master operations",
}

var companyImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import the registry's EDINET code list (EdinetcodeDlInfo.csv)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initEnv(cmd.Context(), "store")
		if err != nil {
			return err
		}
		defer env.Close()

		if _, err := company.NewImporter(env.Store).ImportFile(cmd.Context(), companyFile); err != nil {
			return err
		}
		env.Industry.Flush()
		return nil
	},
}

func init() {
	companyImportCmd.Flags().StringVar(&companyFile, "file", "", "path to the Shift_JIS code list CSV (required)")
	_ = companyImportCmd.MarkFlagRequired("file")
	companyCmd.AddCommand(companyImportCmd)
	rootCmd.AddCommand(companyCmd)
}
