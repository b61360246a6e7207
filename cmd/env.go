package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-cli/internal/batch"
	"github.com/sells-group/edinet-cli/internal/document"
	"github.com/sells-group/edinet-cli/internal/edinet"
	"github.com/sells-group/edinet-cli/internal/fetcher"
	"github.com/sells-group/edinet-cli/internal/files"
	"github.com/sells-group/edinet-cli/internal/ingest"
	"github.com/sells-group/edinet-cli/internal/master"
	"github.com/sells-group/edinet-cli/internal/model"
	"github.com/sells-group/edinet-cli/internal/monitoring"
	"github.com/sells-group/edinet-cli/internal/period"
	"github.com/sells-group/edinet-cli/internal/pipeline"
	"github.com/sells-group/edinet-cli/internal/resilience"
	"github.com/sells-group/edinet-cli/internal/scrape"
	"github.com/sells-group/edinet-cli/internal/store"
)

// appEnv holds the wired services shared by the commands.
type appEnv struct {
	Store    store.Store
	Registry *document.Registry
	Industry *document.IndustryFilter
	Edinet   *edinet.Client
	Ingest   *ingest.Service
	Batch    *batch.Driver
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func typeCodes(codes []string) []model.DocumentTypeCode {
	out := make([]model.DocumentTypeCode, 0, len(codes))
	for _, c := range codes {
		out = append(out, model.ParseDocumentTypeCode(c))
	}
	return out
}

// initEnv validates the config for mode, opens and migrates the store, and
// wires the registry, the registry client and the pipeline. Callers should
// defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	env := &appEnv{Store: st}

	targets := typeCodes(cfg.Scraping.TargetTypeCodes)
	ttl := time.Duration(cfg.Scraping.CacheTTLSecs) * time.Second
	env.Industry = document.NewIndustryFilter(st, cfg.Scraping.ExcludedIndustries, ttl)
	analyzed := document.NewStoreAnalysisChecker(st)
	env.Registry = document.NewRegistry(st,
		period.New(st, period.Options{TargetTypeCodes: targets, CacheTTL: ttl}),
		env.Industry,
		analyzed,
		document.Options{TargetTypeCodes: targets, RemoveTypeCodes: typeCodes(cfg.Scraping.RemoveTypeCodes)},
	)
	if mode == "store" {
		return env, nil
	}

	httpFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:         cfg.Edinet.UserAgent,
		Timeout:           time.Duration(cfg.Edinet.TimeoutSecs) * time.Second,
		RequestsPerSecond: cfg.Edinet.RequestsPerSec,
		Policy:            resilience.NewPolicy("edinet", cfg.Edinet.MaxRetries, cfg.Edinet.FailureThreshold, cfg.Edinet.ResetTimeoutSecs),
	})
	env.Edinet = edinet.NewClient(httpFetcher, edinet.Options{BaseURL: cfg.Edinet.BaseURL, APIKey: cfg.Edinet.APIKey})
	env.Ingest = ingest.New(env.Edinet, st, env.Registry)
	if mode == "ingest" {
		return env, nil
	}

	m, err := master.Load(cfg.Scraping.MasterPath)
	if err != nil {
		env.Close()
		return nil, err
	}
	fs := files.NewClient(env.Edinet, files.Options{
		ArchiveRoot: cfg.Files.ArchiveRoot,
		DecodeRoot:  cfg.Files.DecodeRoot,
	})
	orch := pipeline.New(env.Registry, fs, scrape.NewLocator(), scrape.NewScraper(), m, st)

	var notifier batch.Notifier
	if cfg.Batch.WebhookURL != "" {
		notifier = monitoring.NewNotifier(cfg.Batch.WebhookURL)
	}
	env.Batch = batch.New(orch, env.Registry, analyzed, notifier, batch.Options{Concurrency: cfg.Batch.Concurrency})

	zap.L().Debug("environment ready",
		zap.String("mode", mode),
		zap.String("store", cfg.Store.Driver),
		zap.Int("keywords", len(m.Keywords)),
	)
	return env, nil
}

func parseDate(v string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, eris.Errorf("invalid date %q, want YYYY-MM-DD", v)
	}
	return d, nil
}
