// Package pipeline drives a single document through download, decode and
// the three statement scrapes, recording every outcome as persisted status.
package pipeline

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-cli/internal/metrics"
	"github.com/sells-group/edinet-cli/internal/model"
	"github.com/sells-group/edinet-cli/internal/scrape"
	"github.com/sells-group/edinet-cli/internal/store"
)

// Registry is the document state the orchestrator reads and mutates.
type Registry interface {
	Find(ctx context.Context, documentID string) (*model.Document, error)
	MarkDownloaded(ctx context.Context, documentID string, status model.Status) error
	MarkDecoded(ctx context.Context, documentID string, status model.Status) error
	MarkScrapeDone(ctx context.Context, documentID string, stage model.Stage, path string) error
	MarkScrapeError(ctx context.Context, documentID string, stage model.Stage) error
	MarkRemoved(ctx context.Context, documentID string) error
}

// Files fetches and unpacks document archives.
type Files interface {
	Download(ctx context.Context, submitDate time.Time, documentID string) error
	Decode(ctx context.Context, submitDate time.Time, documentID string) error
	FindDecodedIDs(submitDate time.Time) ([]string, error)
	ScrapeDir(submitDate time.Time, documentID string) string
}

// Locator finds the file holding a keyword-anchored table.
type Locator interface {
	LocateFile(dir, keyword string) (string, error)
}

// TableScraper reads statement tables and single values.
type TableScraper interface {
	ScrapeTable(path, keyword string) ([]scrape.Row, error)
	ScrapeSingleValue(path, keyword string) (string, error)
}

// SubjectMaster supplies statement keywords and account captions.
type SubjectMaster interface {
	KeywordsFor(stage model.Stage) []model.ScrapingKeyword
	FindSubject(stage model.Stage, caption string) (model.Subject, bool)
}

// ValueStore persists extracted values and the metadata they carry.
type ValueStore interface {
	InsertFinancialValue(ctx context.Context, v model.FinancialValue) error
	GetPeriodSource(ctx context.Context, documentID string) (*model.PeriodSource, error)
	GetCompany(ctx context.Context, edinetCode string) (*model.Company, error)
}

// Orchestrator runs the per-document state machine. Domain failures become
// ERROR statuses; only unexpected failures are returned.
type Orchestrator struct {
	docs    Registry
	files   Files
	locator Locator
	scraper TableScraper
	master  SubjectMaster
	values  ValueStore
	log     *zap.Logger
}

// New creates an Orchestrator.
func New(docs Registry, files Files, locator Locator, scraper TableScraper, m SubjectMaster, values ValueStore) *Orchestrator {
	return &Orchestrator{
		docs:    docs,
		files:   files,
		locator: locator,
		scraper: scraper,
		master:  m,
		values:  values,
		log:     zap.L().With(zap.String("component", "pipeline")),
	}
}

// Process runs one pass over a document. Each macro step re-reads the
// stored document so decisions follow the persisted state.
func (o *Orchestrator) Process(ctx context.Context, documentID string) error {
	start := time.Now()
	log := o.log.With(zap.String("document_id", documentID))

	removed, err := o.process(ctx, documentID, log)
	elapsed := time.Since(start)
	switch {
	case err != nil:
		metrics.RecordDocument(metrics.OutcomeFailed, elapsed.Seconds())
		log.Error("pipeline: document failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return err
	case removed:
		metrics.RecordDocument(metrics.OutcomeRemoved, elapsed.Seconds())
	default:
		metrics.RecordDocument(metrics.OutcomeOK, elapsed.Seconds())
	}
	log.Info("pipeline: document processed", zap.Duration("elapsed", elapsed), zap.Bool("removed", removed))
	return nil
}

func (o *Orchestrator) process(ctx context.Context, documentID string, log *zap.Logger) (bool, error) {
	doc, err := o.docs.Find(ctx, documentID)
	if err != nil {
		return false, err
	}
	if err := o.acquire(ctx, doc, log); err != nil {
		return false, err
	}

	doc, err = o.docs.Find(ctx, documentID)
	if err != nil {
		return false, err
	}
	if doc.Decoded == model.StatusDone {
		if err := o.scrapeAll(ctx, doc, log); err != nil {
			return false, err
		}
	}

	doc, err = o.docs.Find(ctx, documentID)
	if err != nil {
		return false, err
	}
	if doc.AllScrapesFailed() && !doc.Removed {
		if err := o.docs.MarkRemoved(ctx, documentID); err != nil {
			return false, err
		}
		log.Info("pipeline: every statement failed, document removed")
		return true, nil
	}
	return doc.Removed, nil
}

// acquire downloads and decodes the archive unless it is already unpacked.
func (o *Orchestrator) acquire(ctx context.Context, doc *model.Document, log *zap.Logger) error {
	id := doc.DocumentID

	if doc.Downloaded == model.StatusNotYet {
		decoded, err := o.files.FindDecodedIDs(doc.SubmitDate)
		if err != nil {
			log.Warn("pipeline: decoded listing failed, downloading", zap.Error(err))
		}
		if slices.Contains(decoded, id) {
			log.Debug("pipeline: archive already decoded")
			if err := o.mark(ctx, id, model.StageDownload, model.StatusDone); err != nil {
				return err
			}
			return o.mark(ctx, id, model.StageDecode, model.StatusDone)
		}

		if err := o.files.Download(ctx, doc.SubmitDate, id); err != nil {
			if ctx.Err() != nil {
				return eris.Wrap(ctx.Err(), "pipeline: download")
			}
			log.Warn("pipeline: download failed", zap.Error(err))
			return o.mark(ctx, id, model.StageDownload, model.StatusError)
		}
		if err := o.mark(ctx, id, model.StageDownload, model.StatusDone); err != nil {
			return err
		}
		return o.decode(ctx, doc, log)
	}

	// A pass interrupted between download and decode resumes here.
	if doc.Downloaded == model.StatusDone && doc.Decoded == model.StatusNotYet {
		return o.decode(ctx, doc, log)
	}
	return nil
}

func (o *Orchestrator) decode(ctx context.Context, doc *model.Document, log *zap.Logger) error {
	if err := o.files.Decode(ctx, doc.SubmitDate, doc.DocumentID); err != nil {
		log.Warn("pipeline: decode failed", zap.Error(err))
		return o.mark(ctx, doc.DocumentID, model.StageDecode, model.StatusError)
	}
	return o.mark(ctx, doc.DocumentID, model.StageDecode, model.StatusDone)
}

func (o *Orchestrator) mark(ctx context.Context, id string, stage model.Stage, status model.Status) error {
	var err error
	if stage == model.StageDownload {
		err = o.docs.MarkDownloaded(ctx, id, status)
	} else {
		err = o.docs.MarkDecoded(ctx, id, status)
	}
	if err != nil {
		return err
	}
	metrics.RecordStage(string(stage), string(status))
	return nil
}

// scrapeAll runs every statement still NOT_YET. One statement's failure
// never stops its siblings.
func (o *Orchestrator) scrapeAll(ctx context.Context, doc *model.Document, log *zap.Logger) error {
	var x *extraction
	for _, st := range Statements {
		stage := st.Stage()
		if doc.StageStatus(stage) != model.StatusNotYet {
			continue
		}
		if x == nil {
			var err error
			if x, err = o.newExtraction(ctx, doc, log); err != nil {
				return err
			}
		}
		if err := o.scrapeStatement(ctx, x, st); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) newExtraction(ctx context.Context, doc *model.Document, log *zap.Logger) (*extraction, error) {
	base := model.FinancialValue{
		EdinetCode:       doc.EdinetCode,
		DocumentTypeCode: doc.DocumentTypeCode,
		QuarterType:      doc.QuarterType,
		SubmitDate:       doc.SubmitDate,
		DocumentID:       doc.DocumentID,
		CreatedType:      model.CreatedAuto,
	}

	company, err := o.values.GetCompany(ctx, doc.EdinetCode)
	switch {
	case err == nil:
		base.CompanyCode = company.Code
	case !errors.Is(err, store.ErrNotFound):
		return nil, eris.Wrap(err, "pipeline: load company")
	}

	src, err := o.values.GetPeriodSource(ctx, doc.DocumentID)
	switch {
	case err == nil:
		base.PeriodStart, base.PeriodEnd = src.PeriodStart, src.PeriodEnd
	case errors.Is(err, store.ErrNotFound):
		log.Debug("pipeline: no registry metadata, values carry no period")
	default:
		return nil, eris.Wrap(err, "pipeline: load registry metadata")
	}

	return &extraction{
		doc:      *doc,
		base:     base,
		scraper:  o.scraper,
		subjects: o.master,
		log:      log,
	}, nil
}

// scrapeStatement locates the statement's file through its keywords in
// priority order, extracts and stores values, then records the outcome.
func (o *Orchestrator) scrapeStatement(ctx context.Context, x *extraction, st Statement) error {
	stage := st.Stage()
	id := x.doc.DocumentID
	log := x.log.With(zap.String("stage", string(stage)))
	dir := o.files.ScrapeDir(x.doc.SubmitDate, id)

	path, keyword, err := o.locate(dir, stage)
	if err != nil {
		log.Warn("pipeline: statement file lookup failed", zap.Error(err))
		return o.scrapeError(ctx, id, stage)
	}
	if path == "" {
		log.Info("pipeline: no file matched any keyword", zap.String("dir", dir),
			zap.Error(scrape.ErrNoMatchingFile))
		return o.scrapeError(ctx, id, stage)
	}

	sub := *x
	sub.log = log.With(zap.String("keyword", keyword))
	values, err := st.extract(&sub, path, keyword)
	if err != nil {
		log.Warn("pipeline: scrape failed", zap.String("path", path), zap.Error(err))
		return o.scrapeError(ctx, id, stage)
	}

	stored := 0
	for _, v := range values {
		if err := o.values.InsertFinancialValue(ctx, v); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				log.Debug("pipeline: value already stored", zap.String("subject_id", v.SubjectID))
				continue
			}
			return eris.Wrapf(err, "pipeline: store %s value", stage)
		}
		stored++
	}
	metrics.RecordValues(string(stage), stored)

	if err := o.docs.MarkScrapeDone(ctx, id, stage, path); err != nil {
		return err
	}
	metrics.RecordStage(string(stage), string(model.StatusDone))
	log.Info("pipeline: statement scraped", zap.String("path", path), zap.Int("values", stored))
	return nil
}

// locate tries each keyword of the stage; the first with a file wins.
func (o *Orchestrator) locate(dir string, stage model.Stage) (string, string, error) {
	for _, kw := range o.master.KeywordsFor(stage) {
		path, err := o.locator.LocateFile(dir, kw.Keyword)
		if err != nil {
			return "", kw.Keyword, err
		}
		if path != "" {
			return path, kw.Keyword, nil
		}
	}
	return "", "", nil
}

func (o *Orchestrator) scrapeError(ctx context.Context, id string, stage model.Stage) error {
	if err := o.docs.MarkScrapeError(ctx, id, stage); err != nil {
		return err
	}
	metrics.RecordStage(string(stage), string(model.StatusError))
	return nil
}
