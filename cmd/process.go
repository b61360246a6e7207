package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	processDate     string
	processCompany  string
	processDocument string
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the download, decode and scrape pipeline",
}

var processBatchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Process every in-scope document of a submission date or filer",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "process")
		if err != nil {
			return err
		}
		defer env.Close()

		if processCompany != "" {
			_, err = env.Batch.RunForCompany(ctx, processCompany)
			return err
		}

		d, err := parseDate(processDate)
		if err != nil {
			return err
		}
		_, err = env.Batch.RunForDate(ctx, d)
		return err
	},
}

var processDocumentCmd = &cobra.Command{
	Use:   "document",
	Short: "Process a single document",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "process")
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Batch.RunForDocument(ctx, processDocument); err != nil {
			return err
		}
		doc, err := env.Registry.Find(ctx, processDocument)
		if err != nil {
			return err
		}
		zap.L().Info("document status",
			zap.String("document_id", doc.DocumentID),
			zap.String("downloaded", doc.Downloaded.String()),
			zap.String("decoded", doc.Decoded.String()),
			zap.String("bs", doc.ScrapedBS.String()),
			zap.String("pl", doc.ScrapedPL.String()),
			zap.String("ns", doc.ScrapedNumberOfShares.String()),
			zap.Bool("removed", doc.Removed),
		)
		return nil
	},
}

func init() {
	processBatchCmd.Flags().StringVar(&processDate, "date", "", "submission date (YYYY-MM-DD)")
	processBatchCmd.Flags().StringVar(&processCompany, "company", "", "EDINET code of a filer")
	processBatchCmd.MarkFlagsOneRequired("date", "company")
	processBatchCmd.MarkFlagsMutuallyExclusive("date", "company")

	processDocumentCmd.Flags().StringVar(&processDocument, "id", "", "document id (required)")
	_ = processDocumentCmd.MarkFlagRequired("id")

	processCmd.AddCommand(processBatchCmd, processDocumentCmd)
	rootCmd.AddCommand(processCmd)
}
