// Package api serves the pipeline operations over HTTP.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-cli/internal/batch"
	"github.com/sells-group/edinet-cli/internal/ingest"
	"github.com/sells-group/edinet-cli/internal/metrics"
	"github.com/sells-group/edinet-cli/internal/model"
)

// Ingester registers a date's documents.
type Ingester interface {
	IngestForDate(ctx context.Context, date time.Time) (*ingest.Result, error)
}

// Runner runs the pipeline.
type Runner interface {
	RunForDate(ctx context.Context, date time.Time) (*batch.Result, error)
	RunForDocument(ctx context.Context, documentID string) error
}

// Documents is the registry surface exposed over HTTP.
type Documents interface {
	Find(ctx context.Context, documentID string) (*model.Document, error)
	Remove(ctx context.Context, documentID string) error
	MarkHalfWay(ctx context.Context, documentID string, stage model.Stage) (bool, error)
	ListInScope(ctx context.Context, date time.Time) ([]model.Document, error)
	ListAnalyzable(ctx context.Context, date time.Time) ([]model.Document, error)
	ListRemovalCandidates(ctx context.Context, date time.Time) ([]model.Document, error)
}

// Deps are the services behind the routes. Metrics and Gatherer may be nil.
type Deps struct {
	Ingester  Ingester
	Runner    Runner
	Documents Documents
	Metrics   *metrics.Middleware
	Gatherer  prometheus.Gatherer
}

// Server holds the routes. Batches run in the background on the server's
// base context so they outlive the request; Wait blocks until they return.
type Server struct {
	deps    Deps
	base    context.Context
	batches sync.WaitGroup
	log     *zap.Logger
}

// New creates a Server. base bounds background batches.
func New(base context.Context, deps Deps) *Server {
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		deps: deps,
		base: base,
		log:  zap.L().With(zap.String("component", "api")),
	}
}

// Wait blocks until every background batch has returned. Call it after the
// HTTP server stopped accepting requests and the base context is done.
func (s *Server) Wait() {
	s.batches.Wait()
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if s.deps.Metrics != nil {
		r.Use(s.deps.Metrics.Handler)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Post("/ingest/{date}", s.ingestDate)
		r.Post("/batches/{date}", s.startBatch)

		r.Get("/documents", s.listDocuments)
		r.Route("/documents/{id}", func(r chi.Router) {
			r.Get("/", s.getDocument)
			r.Delete("/", s.removeDocument)
			r.Post("/process", s.processDocument)
			r.Post("/halfway/{stage}", s.halfWay)
		})
	})
	return r
}

func parseDate(v string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, eris.Errorf("invalid date %q, want YYYY-MM-DD", v)
	}
	return d, nil
}
