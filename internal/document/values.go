package document

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-cli/internal/model"
	"github.com/sells-group/edinet-cli/internal/store"
)

// RegisterValue stores a manually entered statement value for a document.
// The row carries the same metadata a scraped value would. Registering a
// subject twice for the same period is rejected by the store.
func (r *Registry) RegisterValue(ctx context.Context, documentID string, stage model.Stage, subjectID string, value *int64) error {
	if !stage.IsScrape() {
		return eris.Errorf("registry: %s is not a scrape stage", stage)
	}
	if subjectID == "" {
		return eris.New("registry: subject id is required")
	}

	d, err := r.Find(ctx, documentID)
	if err != nil {
		return err
	}
	v := model.FinancialValue{
		EdinetCode:       d.EdinetCode,
		Stage:            stage,
		SubjectID:        subjectID,
		Value:            value,
		DocumentTypeCode: d.DocumentTypeCode,
		QuarterType:      d.QuarterType,
		SubmitDate:       d.SubmitDate,
		DocumentID:       d.DocumentID,
		CreatedType:      model.CreatedManual,
	}

	c, err := r.store.GetCompany(ctx, d.EdinetCode)
	switch {
	case err == nil:
		v.CompanyCode = c.Code
	case !errors.Is(err, store.ErrNotFound):
		return eris.Wrapf(err, "registry: company for %s", documentID)
	}
	src, err := r.store.GetPeriodSource(ctx, documentID)
	switch {
	case err == nil:
		v.PeriodStart, v.PeriodEnd = src.PeriodStart, src.PeriodEnd
	case !errors.Is(err, store.ErrNotFound):
		return eris.Wrapf(err, "registry: period source for %s", documentID)
	}

	if err := r.store.InsertFinancialValue(ctx, v); err != nil {
		return eris.Wrapf(err, "registry: register %s/%s for %s", stage, subjectID, documentID)
	}
	r.log.Info("value registered manually",
		zap.String("document_id", documentID),
		zap.String("stage", string(stage)),
		zap.String("subject_id", subjectID),
	)
	return nil
}
