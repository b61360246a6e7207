package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-cli/internal/model"
	"github.com/sells-group/edinet-cli/internal/report"
)

var (
	listDate string
	listXLSX string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Read projections of a submission date's documents",
}

type listFunc func(ctx context.Context, env *appEnv, date time.Time) ([]model.Document, error)

func newListCmd(use, short string, list listFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			d, err := parseDate(listDate)
			if err != nil {
				return err
			}

			env, err := initEnv(ctx, "store")
			if err != nil {
				return err
			}
			defer env.Close()

			docs, err := list(ctx, env, d)
			if err != nil {
				return err
			}

			if listXLSX != "" {
				if err := report.WriteXLSX(listXLSX, use, docs); err != nil {
					return err
				}
				zap.L().Info("projection exported",
					zap.String("view", use),
					zap.String("path", listXLSX),
					zap.Int("documents", len(docs)),
				)
				return nil
			}

			if docs == nil {
				docs = []model.Document{}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(docs)
		},
	}
}

func init() {
	listCmd.PersistentFlags().StringVar(&listDate, "date", "", "submission date (YYYY-MM-DD, required)")
	listCmd.PersistentFlags().StringVar(&listXLSX, "xlsx", "", "write an XLSX file instead of JSON")
	_ = listCmd.MarkPersistentFlagRequired("date")

	listCmd.AddCommand(
		newListCmd("inscope", "Documents the pipeline processes", func(ctx context.Context, env *appEnv, d time.Time) ([]model.Document, error) {
			return env.Registry.ListInScope(ctx, d)
		}),
		newListCmd("analyzable", "Fully scraped documents awaiting analysis", func(ctx context.Context, env *appEnv, d time.Time) ([]model.Document, error) {
			return env.Registry.ListAnalyzable(ctx, d)
		}),
		newListCmd("removal", "Documents that are candidates for removal", func(ctx context.Context, env *appEnv, d time.Time) ([]model.Document, error) {
			return env.Registry.ListRemovalCandidates(ctx, d)
		}),
	)
	rootCmd.AddCommand(listCmd)
}
