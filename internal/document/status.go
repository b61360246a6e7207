package document

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-cli/internal/model"
)

// MarkDownloaded records the outcome of the download substage.
func (r *Registry) MarkDownloaded(ctx context.Context, documentID string, status model.Status) error {
	return r.setStatus(ctx, documentID, model.StageDownload, status, "")
}

// MarkDecoded records the outcome of the decode substage.
func (r *Registry) MarkDecoded(ctx context.Context, documentID string, status model.Status) error {
	return r.setStatus(ctx, documentID, model.StageDecode, status, "")
}

// MarkScrapeDone records a successful scrape and the file it read.
func (r *Registry) MarkScrapeDone(ctx context.Context, documentID string, stage model.Stage, path string) error {
	if !stage.IsScrape() {
		return eris.Errorf("registry: %s is not a scrape stage", stage)
	}
	return r.setStatus(ctx, documentID, stage, model.StatusDone, path)
}

// MarkScrapeError records a failed scrape.
func (r *Registry) MarkScrapeError(ctx context.Context, documentID string, stage model.Stage) error {
	if !stage.IsScrape() {
		return eris.Errorf("registry: %s is not a scrape stage", stage)
	}
	return r.setStatus(ctx, documentID, stage, model.StatusError, "")
}

// MarkHalfWay flags a DONE scrape substage for re-scraping. Any other stored
// status is left unchanged and false is returned.
func (r *Registry) MarkHalfWay(ctx context.Context, documentID string, stage model.Stage) (bool, error) {
	if !stage.IsScrape() {
		return false, eris.Errorf("registry: %s is not a scrape stage", stage)
	}
	ok, err := r.store.SetStageStatusIf(ctx, documentID, stage, model.StatusDone, model.StatusHalfWay)
	if err != nil {
		return false, eris.Wrapf(err, "registry: mark %s half way", documentID)
	}
	r.log.Info("half way requested",
		zap.String("document_id", documentID),
		zap.String("stage", string(stage)),
		zap.Bool("applied", ok),
	)
	return ok, nil
}

// MarkRemoved excludes a document from every future batch.
func (r *Registry) MarkRemoved(ctx context.Context, documentID string) error {
	if err := r.store.SetRemoved(ctx, documentID); err != nil {
		return eris.Wrapf(err, "registry: mark %s removed", documentID)
	}
	return nil
}

// Remove is the manual exclusion entry point.
func (r *Registry) Remove(ctx context.Context, documentID string) error {
	if err := r.MarkRemoved(ctx, documentID); err != nil {
		return err
	}
	r.log.Info("document removed", zap.String("document_id", documentID))
	return nil
}

// MarkPeriod stores a resolved period.
func (r *Registry) MarkPeriod(ctx context.Context, documentID string, period time.Time) error {
	if err := r.store.SetDocumentPeriod(ctx, documentID, period); err != nil {
		return eris.Wrapf(err, "registry: mark %s period", documentID)
	}
	return nil
}

// UpdateAllDone marks every substage DONE, used after manual registration
// of a document's values.
func (r *Registry) UpdateAllDone(ctx context.Context, documentID string) error {
	if err := r.store.SetAllDone(ctx, documentID); err != nil {
		return eris.Wrapf(err, "registry: update all done %s", documentID)
	}
	r.log.Info("all substages marked done", zap.String("document_id", documentID))
	return nil
}

// RecoverPeriods resolves the period of in-scope documents submitted on date
// that were registered without one, reading their stored registry metadata.
// It returns the number of documents updated.
func (r *Registry) RecoverPeriods(ctx context.Context, date time.Time) (int, error) {
	docs, err := r.ListBySubmitDateAndTypes(ctx, date, r.opts.TargetTypeCodes)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, d := range notRemoved(docs) {
		if d.HasPeriod() {
			continue
		}
		src, err := r.store.GetPeriodSource(ctx, d.DocumentID)
		if err != nil {
			return updated, eris.Wrapf(err, "registry: period source for %s", d.DocumentID)
		}
		p, err := r.periods.Resolve(ctx, src.PeriodEnd, src.ParentDocumentID)
		if err != nil {
			return updated, eris.Wrapf(err, "registry: resolve period for %s", d.DocumentID)
		}
		if err := r.MarkPeriod(ctx, d.DocumentID, p); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

func (r *Registry) setStatus(ctx context.Context, documentID string, stage model.Stage, status model.Status, path string) error {
	if !status.IsValid() {
		return eris.Errorf("registry: invalid status %q", status)
	}
	if err := r.store.SetStageStatus(ctx, documentID, stage, status, path); err != nil {
		return eris.Wrapf(err, "registry: set %s=%s for %s", stage, status, documentID)
	}
	return nil
}
