package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-cli/internal/model"
)

func (s *Server) ingestDate(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(chi.URLParam(r, "date"))
	if err != nil {
		_ = render.Render(w, r, errBadRequest(err))
		return
	}
	res, err := s.deps.Ingester.IngestForDate(r.Context(), date)
	if err != nil {
		s.log.Error("api: ingest failed", zap.Time("date", date), zap.Error(err))
		_ = render.Render(w, r, errFor(err))
		return
	}
	render.JSON(w, r, res)
}

// startBatch accepts the batch and runs it in the background.
func (s *Server) startBatch(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(chi.URLParam(r, "date"))
	if err != nil {
		_ = render.Render(w, r, errBadRequest(err))
		return
	}

	if err := s.base.Err(); err != nil {
		_ = render.Render(w, r, errUnavailable(eris.Wrap(err, "server shutting down")))
		return
	}

	s.batches.Add(1)
	go func() {
		defer s.batches.Done()
		res, err := s.deps.Runner.RunForDate(s.base, date)
		if err != nil {
			s.log.Error("api: batch failed", zap.String("date", date.Format(time.DateOnly)), zap.Error(err))
			return
		}
		s.log.Info("api: batch complete",
			zap.String("date", date.Format(time.DateOnly)),
			zap.Int("succeeded", res.Succeeded),
			zap.Int("failed", res.Failed),
		)
	}()

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"status": "accepted", "date": date.Format(time.DateOnly)})
}

func (s *Server) processDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Runner.RunForDocument(r.Context(), id); err != nil {
		_ = render.Render(w, r, errFor(err))
		return
	}
	doc, err := s.deps.Documents.Find(r.Context(), id)
	if err != nil {
		_ = render.Render(w, r, errFor(err))
		return
	}
	render.JSON(w, r, doc)
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.deps.Documents.Find(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		_ = render.Render(w, r, errFor(err))
		return
	}
	render.JSON(w, r, doc)
}

func (s *Server) removeDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Documents.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		_ = render.Render(w, r, errFor(err))
		return
	}
	render.NoContent(w, r)
}

func (s *Server) halfWay(w http.ResponseWriter, r *http.Request) {
	stage, err := model.ParseStage(chi.URLParam(r, "stage"))
	if err == nil && !stage.IsScrape() {
		err = eris.Errorf("stage %q cannot be half way", stage)
	}
	if err != nil {
		_ = render.Render(w, r, errBadRequest(err))
		return
	}

	applied, err := s.deps.Documents.MarkHalfWay(r.Context(), chi.URLParam(r, "id"), stage)
	if err != nil {
		_ = render.Render(w, r, errFor(err))
		return
	}
	render.JSON(w, r, map[string]bool{"applied": applied})
}

// listDocuments serves the read projections: inscope (default), analyzable
// and removal.
func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		_ = render.Render(w, r, errBadRequest(err))
		return
	}

	var docs []model.Document
	switch view := r.URL.Query().Get("view"); view {
	case "", "inscope":
		docs, err = s.deps.Documents.ListInScope(r.Context(), date)
	case "analyzable":
		docs, err = s.deps.Documents.ListAnalyzable(r.Context(), date)
	case "removal":
		docs, err = s.deps.Documents.ListRemovalCandidates(r.Context(), date)
	default:
		_ = render.Render(w, r, errBadRequest(eris.Errorf("unknown view %q", view)))
		return
	}
	if err != nil {
		_ = render.Render(w, r, errFor(err))
		return
	}
	if docs == nil {
		docs = []model.Document{}
	}
	render.JSON(w, r, docs)
}
