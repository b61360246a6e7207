// Package document owns the document registry: idempotent registration of
// discovered documents, per-substage status mutators, and the read
// projections consumed by reporting.
package document

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-cli/internal/model"
	"github.com/sells-group/edinet-cli/internal/store"
)

// PeriodResolver resolves the period of a registry result. *period.Resolver
// satisfies it.
type PeriodResolver interface {
	Resolve(ctx context.Context, periodEndRaw, parentID string) (time.Time, error)
	ResolveFor(ctx context.Context, typeCode model.DocumentTypeCode, periodEndRaw, parentID string) (*time.Time, error)
}

// Options configures a Registry.
type Options struct {
	// TargetTypeCodes select the documents processed by the pipeline.
	TargetTypeCodes []model.DocumentTypeCode
	// RemoveTypeCodes select the documents listed as removal candidates.
	RemoveTypeCodes []model.DocumentTypeCode
}

// Registry reads and mutates documents through the store.
type Registry struct {
	store    store.Store
	periods  PeriodResolver
	eligible Eligibility
	analyzed AnalysisChecker
	opts     Options
	log      *zap.Logger
}

// NewRegistry creates a Registry.
func NewRegistry(st store.Store, periods PeriodResolver, eligible Eligibility, analyzed AnalysisChecker, opts Options) *Registry {
	return &Registry{
		store:    st,
		periods:  periods,
		eligible: eligible,
		analyzed: analyzed,
		opts:     opts,
		log:      zap.L().With(zap.String("component", "registry")),
	}
}

// InsertDiscovered registers every registry result not yet stored for
// submitDate and returns how many rows were inserted. A unique violation
// means another writer registered the document first and is skipped. A
// foreign key violation means the filer was never registered and is fatal.
func (r *Registry) InsertDiscovered(ctx context.Context, submitDate time.Time, results []model.PeriodSource) (int, error) {
	existing, err := r.store.ListDocumentIDsBySubmitDate(ctx, submitDate)
	if err != nil {
		return 0, eris.Wrapf(err, "registry: list stored documents for %s", submitDate.Format(time.DateOnly))
	}
	known := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		known[id] = struct{}{}
	}

	inserted := 0
	for _, res := range results {
		if _, ok := known[res.DocumentID]; ok {
			continue
		}

		d, err := r.build(ctx, submitDate, res)
		if err != nil {
			return inserted, err
		}

		err = r.store.InsertDocument(ctx, d)
		switch {
		case err == nil:
			inserted++
			known[d.DocumentID] = struct{}{}
		case errors.Is(err, store.ErrDuplicate):
			r.log.Debug("document already registered",
				zap.String("document_id", d.DocumentID),
				zap.String("submit_date", submitDate.Format(time.DateOnly)),
			)
		case errors.Is(err, store.ErrForeignKey):
			return inserted, eris.Wrapf(err, "registry: filer %s not registered for document %s", d.EdinetCode, d.DocumentID)
		default:
			return inserted, eris.Wrapf(err, "registry: insert document %s", d.DocumentID)
		}
	}
	return inserted, nil
}

func (r *Registry) build(ctx context.Context, submitDate time.Time, res model.PeriodSource) (model.Document, error) {
	typeCode := res.TypeCode()
	period, err := r.periods.ResolveFor(ctx, typeCode, res.PeriodEnd, res.ParentDocumentID)
	if err != nil {
		return model.Document{}, eris.Wrapf(err, "registry: resolve period for %s", res.DocumentID)
	}
	return model.Document{
		DocumentID:            res.DocumentID,
		DocumentTypeCode:      typeCode,
		QuarterType:           res.QuarterType(),
		EdinetCode:            res.EdinetCode,
		ParentDocumentID:      res.ParentDocumentID,
		SubmitDate:            submitDate,
		DocumentPeriod:        period,
		Downloaded:            model.StatusNotYet,
		Decoded:               model.StatusNotYet,
		ScrapedBS:             model.StatusNotYet,
		ScrapedPL:             model.StatusNotYet,
		ScrapedNumberOfShares: model.StatusNotYet,
	}, nil
}

// Find returns a stored document. An unknown id is an error.
func (r *Registry) Find(ctx context.Context, documentID string) (*model.Document, error) {
	d, err := r.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: find %s", documentID)
	}
	return d, nil
}

// ListBySubmitDateAndTypes returns the documents submitted on date whose
// type is in types and whose filer is known and in scope.
func (r *Registry) ListBySubmitDateAndTypes(ctx context.Context, date time.Time, types []model.DocumentTypeCode) ([]model.Document, error) {
	docs, err := r.store.ListDocumentsBySubmitDate(ctx, date)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: list %s", date.Format(time.DateOnly))
	}
	return r.filterEligible(ctx, docs, types)
}

// ListByCompany returns the in-scope documents of one filer.
func (r *Registry) ListByCompany(ctx context.Context, edinetCode string) ([]model.Document, error) {
	docs, err := r.store.ListDocumentsByEdinetCode(ctx, edinetCode)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: list company %s", edinetCode)
	}
	eligible, err := r.filterEligible(ctx, docs, r.opts.TargetTypeCodes)
	if err != nil {
		return nil, err
	}
	return notRemoved(eligible), nil
}

func (r *Registry) filterEligible(ctx context.Context, docs []model.Document, types []model.DocumentTypeCode) ([]model.Document, error) {
	out := make([]model.Document, 0, len(docs))
	for _, d := range docs {
		if d.EdinetCode == "" || !model.ContainsDocumentType(types, d.DocumentTypeCode) {
			continue
		}
		ok, err := r.eligible.IsInScopeIndustry(ctx, d.EdinetCode)
		if err != nil {
			return nil, eris.Wrapf(err, "registry: eligibility of %s", d.EdinetCode)
		}
		if ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func notRemoved(docs []model.Document) []model.Document {
	out := make([]model.Document, 0, len(docs))
	for _, d := range docs {
		if !d.Removed {
			out = append(out, d)
		}
	}
	return out
}
