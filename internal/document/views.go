package document

import (
	"context"
	"time"

	"github.com/sells-group/edinet-cli/internal/model"
)

// ListInScope returns the documents submitted on date that the pipeline
// processes: target type, known in-scope filer, not removed.
func (r *Registry) ListInScope(ctx context.Context, date time.Time) ([]model.Document, error) {
	docs, err := r.ListBySubmitDateAndTypes(ctx, date, r.opts.TargetTypeCodes)
	if err != nil {
		return nil, err
	}
	return notRemoved(docs), nil
}

// ListAnalyzable returns in-scope documents that are fully scraped, carry a
// resolved period and have not been analyzed yet.
func (r *Registry) ListAnalyzable(ctx context.Context, date time.Time) ([]model.Document, error) {
	docs, err := r.ListInScope(ctx, date)
	if err != nil {
		return nil, err
	}

	scraped, _ := PartitionByScraped(docs)
	out := make([]model.Document, 0, len(scraped))
	for _, d := range scraped {
		if !d.HasResolvedPeriod() {
			continue
		}
		done, err := r.analyzed.IsAnalyzed(ctx, d)
		if err != nil {
			return nil, err
		}
		if !done {
			out = append(out, d)
		}
	}
	return out, nil
}

// ListRemovalCandidates returns the documents submitted on date that a
// reviewer may exclude: removal type set, known in-scope filer, not removed.
func (r *Registry) ListRemovalCandidates(ctx context.Context, date time.Time) ([]model.Document, error) {
	docs, err := r.ListBySubmitDateAndTypes(ctx, date, r.opts.RemoveTypeCodes)
	if err != nil {
		return nil, err
	}
	return notRemoved(docs), nil
}
