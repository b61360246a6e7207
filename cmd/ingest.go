package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	ingestDate string
	ingestFrom string
	ingestTo   string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Register the documents the registry lists for a date or date range",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if ingestDate == "" && (ingestFrom == "" || ingestTo == "") {
			return eris.New("either --date or both --from and --to are required")
		}

		env, err := initEnv(ctx, "ingest")
		if err != nil {
			return err
		}
		defer env.Close()

		if ingestDate != "" {
			d, err := parseDate(ingestDate)
			if err != nil {
				return err
			}
			_, err = env.Ingest.IngestForDate(ctx, d)
			return err
		}

		from, err := parseDate(ingestFrom)
		if err != nil {
			return err
		}
		to, err := parseDate(ingestTo)
		if err != nil {
			return err
		}
		results, err := env.Ingest.IngestRange(ctx, from, to)
		inserted := 0
		for _, r := range results {
			inserted += r.Inserted
		}
		zap.L().Info("ingest range complete",
			zap.Int("dates", len(results)),
			zap.Int("inserted", inserted),
		)
		return err
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDate, "date", "", "submission date (YYYY-MM-DD)")
	ingestCmd.Flags().StringVar(&ingestFrom, "from", "", "first submission date of a range")
	ingestCmd.Flags().StringVar(&ingestTo, "to", "", "last submission date of a range")
	ingestCmd.MarkFlagsMutuallyExclusive("date", "from")
	ingestCmd.MarkFlagsRequiredTogether("from", "to")
	rootCmd.AddCommand(ingestCmd)
}
