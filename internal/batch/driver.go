// Package batch fans a date's or a company's documents out to the
// per-document pipeline and reports the outcome.
package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/edinet-cli/internal/document"
	"github.com/sells-group/edinet-cli/internal/model"
	"github.com/sells-group/edinet-cli/internal/monitoring"
)

// Processor runs one pipeline pass over a document.
type Processor interface {
	Process(ctx context.Context, documentID string) error
}

// Documents lists the candidates of a batch and re-reads them afterwards.
type Documents interface {
	Find(ctx context.Context, documentID string) (*model.Document, error)
	ListInScope(ctx context.Context, date time.Time) ([]model.Document, error)
	ListByCompany(ctx context.Context, edinetCode string) ([]model.Document, error)
}

// Notifier receives the report of a finished batch.
type Notifier interface {
	NotifyBatch(ctx context.Context, report monitoring.BatchReport) error
}

// Options configures a Driver.
type Options struct {
	Concurrency int
}

// Result counts what a batch did.
type Result struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Driver processes documents concurrently. Documents are independent and
// no ordering holds between them.
type Driver struct {
	proc     Processor
	docs     Documents
	analyzed document.AnalysisChecker
	notifier Notifier
	opts     Options
	log      *zap.Logger
}

// New creates a Driver. analyzed and notifier may be nil.
func New(proc Processor, docs Documents, analyzed document.AnalysisChecker, notifier Notifier, opts Options) *Driver {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Driver{
		proc:     proc,
		docs:     docs,
		analyzed: analyzed,
		notifier: notifier,
		opts:     opts,
		log:      zap.L().With(zap.String("component", "batch")),
	}
}

// RunForDate processes every in-scope document submitted on date.
func (d *Driver) RunForDate(ctx context.Context, date time.Time) (*Result, error) {
	docs, err := d.docs.ListInScope(ctx, date)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: list %s", date.Format(time.DateOnly))
	}
	return d.runAndReport(ctx, date.Format(time.DateOnly), docs)
}

// RunForCompany processes every in-scope document of a filer.
func (d *Driver) RunForCompany(ctx context.Context, edinetCode string) (*Result, error) {
	docs, err := d.docs.ListByCompany(ctx, edinetCode)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: list company %s", edinetCode)
	}
	return d.runAndReport(ctx, edinetCode, docs)
}

// RunForDocument processes a single document.
func (d *Driver) RunForDocument(ctx context.Context, documentID string) error {
	return d.proc.Process(ctx, documentID)
}

func (d *Driver) runAndReport(ctx context.Context, label string, docs []model.Document) (*Result, error) {
	res, runErr := d.run(ctx, label, docs)
	if res.Total > 0 && ctx.Err() == nil {
		if err := d.report(ctx, label, docs, res); err != nil {
			d.log.Warn("batch: report failed", zap.String("batch", label), zap.Error(err))
		}
	}
	return res, runErr
}

// run never aborts on an individual failure. Unexpected errors are counted
// and the first is returned once every document has had its pass.
func (d *Driver) run(ctx context.Context, label string, docs []model.Document) (*Result, error) {
	res := &Result{Total: len(docs)}
	if len(docs) == 0 {
		d.log.Info("no in-scope documents found", zap.String("batch", label))
		return res, nil
	}

	d.log.Info("processing batch",
		zap.String("batch", label),
		zap.Int("documents", len(docs)),
		zap.Int("concurrency", d.opts.Concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Concurrency)

	var succeeded, failed atomic.Int64
	var (
		mu       sync.Mutex
		firstErr error
	)

	for _, doc := range docs {
		id := doc.DocumentID
		g.Go(func() error {
			if err := d.proc.Process(gctx, id); err != nil {
				failed.Add(1)
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	res.Succeeded = int(succeeded.Load())
	res.Failed = int(failed.Load())
	d.log.Info("batch complete",
		zap.String("batch", label),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
	)

	if firstErr != nil {
		return res, eris.Wrapf(firstErr, "batch: %d of %d documents failed", res.Failed, res.Total)
	}
	return res, nil
}

// report re-reads the processed documents and posts their scraped and
// analyzed partitions.
func (d *Driver) report(ctx context.Context, label string, processed []model.Document, res *Result) error {
	current := make([]model.Document, 0, len(processed))
	for _, doc := range processed {
		fresh, err := d.docs.Find(ctx, doc.DocumentID)
		if err != nil {
			return err
		}
		current = append(current, *fresh)
	}

	scraped, notScraped := document.PartitionByScraped(current)
	rep := monitoring.BatchReport{
		Date:       label,
		Total:      res.Total,
		Succeeded:  res.Succeeded,
		Failed:     res.Failed,
		Scraped:    ids(scraped),
		NotScraped: ids(notScraped),
		FinishedAt: time.Now().UTC(),
	}
	if d.analyzed != nil {
		analyzed, notAnalyzed, err := document.PartitionByAnalyzed(ctx, scraped, d.analyzed)
		if err != nil {
			return err
		}
		rep.Analyzed, rep.NotAnalyzed = ids(analyzed), ids(notAnalyzed)
	}

	d.log.Info("batch partitions",
		zap.String("batch", label),
		zap.Int("scraped", len(rep.Scraped)),
		zap.Int("not_scraped", len(rep.NotScraped)),
		zap.Int("not_analyzed", len(rep.NotAnalyzed)),
	)
	if d.notifier == nil {
		return nil
	}
	return d.notifier.NotifyBatch(ctx, rep)
}

func ids(docs []model.Document) []string {
	out := make([]string, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.DocumentID)
	}
	return out
}
