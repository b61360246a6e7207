package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-cli/internal/model"
)

var (
	documentID    string
	documentStage string
	recoverDate   string
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manual document operations",
}

var documentRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Exclude a document from every future batch",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initEnv(cmd.Context(), "store")
		if err != nil {
			return err
		}
		defer env.Close()
		return env.Registry.Remove(cmd.Context(), documentID)
	},
}

var documentHalfwayCmd = &cobra.Command{
	Use:   "halfway",
	Short: "Flag a DONE scrape stage for re-scraping",
	RunE: func(cmd *cobra.Command, _ []string) error {
		stage, err := model.ParseStage(documentStage)
		if err != nil {
			return err
		}
		if !stage.IsScrape() {
			return eris.Errorf("stage %q cannot be half way", stage)
		}

		env, err := initEnv(cmd.Context(), "store")
		if err != nil {
			return err
		}
		defer env.Close()

		applied, err := env.Registry.MarkHalfWay(cmd.Context(), documentID, stage)
		if err != nil {
			return err
		}
		if !applied {
			zap.L().Warn("stage was not DONE, left unchanged",
				zap.String("document_id", documentID),
				zap.String("stage", string(stage)),
			)
		}
		return nil
	},
}

var documentDoneCmd = &cobra.Command{
	Use:   "done",
	Short: "Mark every stage of a document DONE",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initEnv(cmd.Context(), "store")
		if err != nil {
			return err
		}
		defer env.Close()
		return env.Registry.UpdateAllDone(cmd.Context(), documentID)
	},
}

var documentRecoverCmd = &cobra.Command{
	Use:   "recover-periods",
	Short: "Resolve missing periods of a submission date's documents",
	RunE: func(cmd *cobra.Command, _ []string) error {
		d, err := parseDate(recoverDate)
		if err != nil {
			return err
		}

		env, err := initEnv(cmd.Context(), "store")
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Registry.RecoverPeriods(cmd.Context(), d)
		if err != nil {
			return err
		}
		zap.L().Info("periods recovered", zap.String("submit_date", recoverDate), zap.Int("updated", n))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{documentRemoveCmd, documentHalfwayCmd, documentDoneCmd} {
		c.Flags().StringVar(&documentID, "id", "", "document id (required)")
		_ = c.MarkFlagRequired("id")
	}
	documentHalfwayCmd.Flags().StringVar(&documentStage, "stage", "", "scrape stage: bs, pl or ns (required)")
	_ = documentHalfwayCmd.MarkFlagRequired("stage")
	documentRecoverCmd.Flags().StringVar(&recoverDate, "date", "", "submission date (YYYY-MM-DD)")
	_ = documentRecoverCmd.MarkFlagRequired("date")

	documentCmd.AddCommand(documentRemoveCmd, documentHalfwayCmd, documentDoneCmd, documentRecoverCmd)
	rootCmd.AddCommand(documentCmd)
}
