package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-cli/internal/batch"
	"github.com/sells-group/edinet-cli/internal/ingest"
	"github.com/sells-group/edinet-cli/internal/metrics"
	"github.com/sells-group/edinet-cli/internal/model"
	"github.com/sells-group/edinet-cli/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeIngester struct {
	date time.Time
	err  error
}

func (f *fakeIngester) IngestForDate(_ context.Context, date time.Time) (*ingest.Result, error) {
	f.date = date
	if f.err != nil {
		return nil, f.err
	}
	return &ingest.Result{RunID: "run-1", Date: date, Listed: 2, Inserted: 2}, nil
}

type fakeRunner struct {
	batchDone chan time.Time
	processed []string
	err       error
}

func (f *fakeRunner) RunForDate(_ context.Context, date time.Time) (*batch.Result, error) {
	f.batchDone <- date
	return &batch.Result{Total: 1, Succeeded: 1}, nil
}

func (f *fakeRunner) RunForDocument(_ context.Context, id string) error {
	f.processed = append(f.processed, id)
	return f.err
}

type fakeDocuments struct {
	docs    map[string]*model.Document
	removed []string
	lastFor string
}

func (f *fakeDocuments) Find(_ context.Context, id string) (*model.Document, error) {
	d, ok := f.docs[id]
	if !ok {
		return nil, eris.Wrapf(store.ErrNotFound, "document %s", id)
	}
	return d, nil
}

func (f *fakeDocuments) Remove(_ context.Context, id string) error {
	if _, ok := f.docs[id]; !ok {
		return eris.Wrapf(store.ErrNotFound, "document %s", id)
	}
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeDocuments) MarkHalfWay(_ context.Context, id string, stage model.Stage) (bool, error) {
	d, ok := f.docs[id]
	if !ok {
		return false, eris.Wrapf(store.ErrNotFound, "document %s", id)
	}
	return d.StageStatus(stage) == model.StatusDone, nil
}

func (f *fakeDocuments) list(view string) []model.Document {
	f.lastFor = view
	var out []model.Document
	for _, d := range f.docs {
		out = append(out, *d)
	}
	return out
}

func (f *fakeDocuments) ListInScope(context.Context, time.Time) ([]model.Document, error) {
	return f.list("inscope"), nil
}

func (f *fakeDocuments) ListAnalyzable(context.Context, time.Time) ([]model.Document, error) {
	return f.list("analyzable"), nil
}

func (f *fakeDocuments) ListRemovalCandidates(context.Context, time.Time) ([]model.Document, error) {
	return nil, nil
}

type harness struct {
	ingester *fakeIngester
	runner   *fakeRunner
	docs     *fakeDocuments
	handler  http.Handler
	registry *prometheus.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		ingester: &fakeIngester{},
		runner:   &fakeRunner{batchDone: make(chan time.Time, 1)},
		docs: &fakeDocuments{docs: map[string]*model.Document{
			"S100AAAA": {DocumentID: "S100AAAA", ScrapedBS: model.StatusDone, ScrapedPL: model.StatusError},
		}},
		registry: prometheus.NewRegistry(),
	}
	mw := metrics.NewMiddleware()
	for _, c := range mw.Collectors() {
		require.NoError(t, h.registry.Register(c))
	}
	h.handler = New(context.Background(), Deps{
		Ingester:  h.ingester,
		Runner:    h.runner,
		Documents: h.docs,
		Metrics:   mw,
		Gatherer:  h.registry,
	}).Routes()
	return h
}

func (h *harness) do(method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := newHarness(t).do(http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodGet, "/health")

	rec := h.do(http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `edinet_http_requests_total{code="200",method="GET",path="/health"} 1`)
}

func TestIngestDate(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/v1/ingest/2021-06-25")
	require.Equal(t, http.StatusOK, rec.Code)

	var res ingest.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, time.Date(2021, 6, 25, 0, 0, 0, 0, time.UTC), h.ingester.date)
}

func TestIngestDate_BadDate(t *testing.T) {
	rec := newHarness(t).do(http.MethodPost, "/v1/ingest/25-06-2021")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid date")
}

func TestIngestDate_Failure(t *testing.T) {
	h := newHarness(t)
	h.ingester.err = eris.New("registry down")
	rec := h.do(http.MethodPost, "/v1/ingest/2021-06-25")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "registry down")
}

func TestStartBatch(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/v1/batches/2021-06-25")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case d := <-h.runner.batchDone:
		assert.Equal(t, "2021-06-25", d.Format(time.DateOnly))
	case <-time.After(5 * time.Second):
		t.Fatal("batch did not start")
	}
}

type blockingRunner struct {
	fakeRunner
	started chan struct{}
	release chan struct{}
	ctxErr  error
}

func (b *blockingRunner) RunForDate(ctx context.Context, _ time.Time) (*batch.Result, error) {
	close(b.started)
	<-b.release
	b.ctxErr = ctx.Err()
	return nil, ctx.Err()
}

func TestWait_BlocksUntilBatchReturns(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := &blockingRunner{started: make(chan struct{}), release: make(chan struct{})}
	srv := New(base, Deps{Runner: runner, Gatherer: prometheus.NewRegistry()})

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/batches/2021-06-25", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	<-runner.started

	cancel()
	waited := make(chan struct{})
	go func() {
		srv.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("Wait returned while a batch was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(runner.release)
	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after the batch finished")
	}
	assert.ErrorIs(t, runner.ctxErr, context.Canceled)
}

func TestStartBatch_AfterShutdown(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	cancel()
	runner := &fakeRunner{batchDone: make(chan time.Time, 1)}
	srv := New(base, Deps{Runner: runner, Gatherer: prometheus.NewRegistry()})

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/batches/2021-06-25", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "shutting down")
	srv.Wait()
	assert.Empty(t, runner.batchDone)
}

func TestProcessDocument(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/v1/documents/S100AAAA/process")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"S100AAAA"}, h.runner.processed)

	var doc model.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "S100AAAA", doc.DocumentID)
}

func TestProcessDocument_Unknown(t *testing.T) {
	h := newHarness(t)
	h.runner.err = eris.Wrap(store.ErrNotFound, "registry: find S100ZZZZ")
	rec := h.do(http.MethodPost, "/v1/documents/S100ZZZZ/process")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetDocument(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/v1/documents/S100AAAA").Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/v1/documents/S100ZZZZ").Code)
}

func TestRemoveDocument(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodDelete, "/v1/documents/S100AAAA")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"S100AAAA"}, h.docs.removed)

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/v1/documents/S100ZZZZ").Code)
}

func TestHalfWay(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/v1/documents/S100AAAA/halfway/bs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"applied":true}`, rec.Body.String())

	rec = h.do(http.MethodPost, "/v1/documents/S100AAAA/halfway/pl")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"applied":false}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/v1/documents/S100AAAA/halfway/decode").Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/v1/documents/S100AAAA/halfway/xx").Code)
}

func TestListDocuments(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/v1/documents?date=2021-06-25")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "inscope", h.docs.lastFor)
	assert.Contains(t, rec.Body.String(), "S100AAAA")

	rec = h.do(http.MethodGet, "/v1/documents?date=2021-06-25&view=analyzable")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "analyzable", h.docs.lastFor)

	rec = h.do(http.MethodGet, "/v1/documents?date=2021-06-25&view=removal")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/v1/documents?date=2021-06-25&view=other").Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/v1/documents").Code)
}
