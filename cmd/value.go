package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/edinet-cli/internal/model"
	"github.com/sells-group/edinet-cli/internal/scrape"
)

var (
	valueDocument string
	valueStage    string
	valueSubject  string
	valueRaw      string
	valueAllDone  bool
)

var valueCmd = &cobra.Command{
	Use:   "value",
	Short: "Manual statement values",
}

var valueRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a statement value by hand",
	Long:  "Registers one subject's value for a document. The value accepts the same notation as scraped tables (commas, △ for negatives, - for zero).",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		stage, err := model.ParseStage(valueStage)
		if err != nil {
			return err
		}
		v, err := scrape.ParseValue(valueRaw)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Registry.RegisterValue(ctx, valueDocument, stage, valueSubject, v); err != nil {
			return err
		}
		if valueAllDone {
			return env.Registry.UpdateAllDone(ctx, valueDocument)
		}
		return nil
	},
}

func init() {
	f := valueRegisterCmd.Flags()
	f.StringVar(&valueDocument, "id", "", "document id (required)")
	f.StringVar(&valueStage, "stage", "", "statement: bs, pl or ns (required)")
	f.StringVar(&valueSubject, "subject", "", "subject id from the master (required)")
	f.StringVar(&valueRaw, "value", "", "value in yen or shares (required)")
	f.BoolVar(&valueAllDone, "all-done", false, "mark every stage of the document DONE afterwards")
	for _, name := range []string{"id", "stage", "subject", "value"} {
		_ = valueRegisterCmd.MarkFlagRequired(name)
	}

	valueCmd.AddCommand(valueRegisterCmd)
	rootCmd.AddCommand(valueCmd)
}
