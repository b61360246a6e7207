// Package ingest registers the documents the disclosure registry lists for
// a submission date.
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-cli/internal/edinet"
	"github.com/sells-group/edinet-cli/internal/metrics"
	"github.com/sells-group/edinet-cli/internal/model"
	"github.com/sells-group/edinet-cli/internal/store"
)

// Lister is the registry listing endpoint.
type Lister interface {
	List(ctx context.Context, date time.Time, lt edinet.ListType) (*edinet.ListResponse, error)
}

// Store holds registry metadata and filers.
type Store interface {
	SavePeriodSources(ctx context.Context, sources []model.PeriodSource) (int64, error)
	GetCompany(ctx context.Context, edinetCode string) (*model.Company, error)
	InsertCompany(ctx context.Context, c model.Company) error
}

// Discoverer inserts documents not yet registered for a date.
type Discoverer interface {
	InsertDiscovered(ctx context.Context, submitDate time.Time, results []model.PeriodSource) (int, error)
}

// Result reports one date's ingestion.
type Result struct {
	RunID     string    `json:"run_id"`
	Date      time.Time `json:"date"`
	Skipped   bool      `json:"skipped"`
	Listed    int       `json:"listed"`
	Sources   int64     `json:"sources"`
	Companies int       `json:"companies"`
	Inserted  int       `json:"inserted"`
}

// Service ingests registry listings.
type Service struct {
	registry Lister
	store    Store
	docs     Discoverer
	log      *zap.Logger
}

// New creates a Service.
func New(registry Lister, st Store, docs Discoverer) *Service {
	return &Service{
		registry: registry,
		store:    st,
		docs:     docs,
		log:      zap.L().With(zap.String("component", "ingest")),
	}
}

// IngestForDate checks the registry count for date and, when documents were
// submitted, stores every listed row, registers unknown filers and inserts
// the new documents. Re-running a date is a no-op.
func (s *Service) IngestForDate(ctx context.Context, date time.Time) (*Result, error) {
	day := date.Format(time.DateOnly)
	res := &Result{RunID: uuid.NewString(), Date: date}
	log := s.log.With(zap.String("run_id", res.RunID), zap.String("submit_date", day))

	meta, err := s.registry.List(ctx, date, edinet.ListMetadata)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: registry count %s", day)
	}
	if meta.Count() == 0 {
		res.Skipped = true
		log.Info("no documents submitted, skipping")
		return res, nil
	}

	listing, err := s.registry.List(ctx, date, edinet.ListWithResults)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: registry listing %s", day)
	}
	res.Listed = len(listing.Results)

	if res.Sources, err = s.store.SavePeriodSources(ctx, listing.Results); err != nil {
		return nil, eris.Wrapf(err, "ingest: save registry rows %s", day)
	}
	if res.Companies, err = s.registerFilers(ctx, listing.Results, log); err != nil {
		return nil, err
	}
	if res.Inserted, err = s.docs.InsertDiscovered(ctx, date, listing.Results); err != nil {
		return nil, eris.Wrapf(err, "ingest: insert documents %s", day)
	}

	metrics.RecordIngested(res.Inserted)
	log.Info("ingest complete",
		zap.Int("listed", res.Listed),
		zap.Int64("sources", res.Sources),
		zap.Int("companies", res.Companies),
		zap.Int("inserted", res.Inserted),
	)
	return res, nil
}

// IngestRange ingests every date from one through to, inclusive, stopping
// at the first failure.
func (s *Service) IngestRange(ctx context.Context, from, to time.Time) ([]*Result, error) {
	if to.Before(from) {
		return nil, eris.Errorf("ingest: range end %s before start %s", to.Format(time.DateOnly), from.Format(time.DateOnly))
	}
	var out []*Result
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return out, eris.Wrap(err, "ingest: range")
		}
		res, err := s.IngestForDate(ctx, d)
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}

// registerFilers inserts a stub company for each filer the store does not
// know, so document rows satisfy their foreign key. Stubs carry no
// securities code and stay out of scope until a company import fills in
// listing and industry data.
func (s *Service) registerFilers(ctx context.Context, results []model.PeriodSource, log *zap.Logger) (int, error) {
	seen := make(map[string]struct{})
	added := 0
	for _, r := range results {
		if r.EdinetCode == "" {
			continue
		}
		if _, ok := seen[r.EdinetCode]; ok {
			continue
		}
		seen[r.EdinetCode] = struct{}{}

		_, err := s.store.GetCompany(ctx, r.EdinetCode)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return added, eris.Wrapf(err, "ingest: lookup filer %s", r.EdinetCode)
		}

		err = s.store.InsertCompany(ctx, model.Company{
			EdinetCode: r.EdinetCode,
			Name:       r.FilerName,
		})
		switch {
		case err == nil:
			added++
			log.Debug("filer registered", zap.String("edinet_code", r.EdinetCode))
		case errors.Is(err, store.ErrDuplicate):
		default:
			return added, eris.Wrapf(err, "ingest: register filer %s", r.EdinetCode)
		}
	}
	return added, nil
}
