package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-cli/internal/config"
	"github.com/sells-group/edinet-cli/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeCounter struct {
	counts *store.StatusCounts
	err    error
	since  time.Time
}

func (f *fakeCounter) CountStatuses(_ context.Context, since time.Time) (*store.StatusCounts, error) {
	f.since = since
	return f.counts, f.err
}

func TestCollector_Collect(t *testing.T) {
	fc := &fakeCounter{counts: &store.StatusCounts{Total: 20, Removed: 2, NotYet: 3, Errored: 5, FullyScraped: 10}}
	c := NewCollector(fc)
	now := time.Date(2021, 6, 26, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, now.Add(-24*time.Hour), fc.since)
	assert.Equal(t, 20, snap.Total)
	assert.Equal(t, 5, snap.Errored)
	assert.Equal(t, 10, snap.FullyScraped)
	assert.InDelta(t, 0.25, snap.ErrorRate, 0.0001)
	assert.Equal(t, 24, snap.LookbackHours)
	assert.Equal(t, now, snap.CollectedAt)
}

func TestCollector_EmptyWindow(t *testing.T) {
	snap, err := NewCollector(&fakeCounter{counts: &store.StatusCounts{}}).Collect(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, snap.ErrorRate)
}

func TestCollector_Error(t *testing.T) {
	_, err := NewCollector(&fakeCounter{err: eris.New("db down")}).Collect(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count statuses")
}

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{ErrorRateThreshold: 0.5, StalledThreshold: 100})
	alerts := a.Evaluate(&Snapshot{Total: 100, Errored: 10, ErrorRate: 0.1, NotYet: 20, LookbackHours: 24})
	assert.Empty(t, alerts)
}

func TestAlerter_Evaluate_ErrorRate(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{ErrorRateThreshold: 0.2})
	alerts := a.Evaluate(&Snapshot{Total: 10, Errored: 4, ErrorRate: 0.4, LookbackHours: 24})

	require.Len(t, alerts, 1)
	assert.Equal(t, AlertErrorRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "40.0%")
	assert.NotEmpty(t, alerts[0].ID)
}

func TestAlerter_Evaluate_ErrorRateNeedsVolume(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{ErrorRateThreshold: 0.2})
	alerts := a.Evaluate(&Snapshot{Total: 2, Errored: 2, ErrorRate: 1})
	assert.Empty(t, alerts)
}

func TestAlerter_Evaluate_Stalled(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{StalledThreshold: 50})
	alerts := a.Evaluate(&Snapshot{Total: 60, NotYet: 55, LookbackHours: 24})

	require.Len(t, alerts, 1)
	assert.Equal(t, AlertStalled, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "55 documents")
}

func TestAlerter_SendAlerts(t *testing.T) {
	var count atomic.Int32
	var got Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count.Add(1)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{{ID: "a1", Type: AlertStalled, Severity: "medium"}})

	assert.Equal(t, 1, sent)
	assert.Equal(t, int32(1), count.Load())
	assert.Equal(t, "a1", got.ID)
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	assert.Equal(t, 0, a.SendAlerts(context.Background(), []Alert{{Type: AlertErrorRate}}))
}

func TestAlerter_SendAlerts_NoWebhook(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	assert.Equal(t, 0, a.SendAlerts(context.Background(), []Alert{{Type: AlertErrorRate}}))
}

func TestChecker_Check(t *testing.T) {
	var count atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		count.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := config.MonitoringConfig{WebhookURL: srv.URL, LookbackWindowHours: 24, ErrorRateThreshold: 0.1, StalledThreshold: 3}
	fc := &fakeCounter{counts: &store.StatusCounts{Total: 10, Errored: 5, NotYet: 4}}
	checker := NewChecker(NewCollector(fc), NewAlerter(cfg), cfg)

	sent := checker.check(context.Background(), zap.NewNop())
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), count.Load())
}

func TestChecker_CheckCollectError(t *testing.T) {
	cfg := config.MonitoringConfig{LookbackWindowHours: 24}
	checker := NewChecker(NewCollector(&fakeCounter{err: eris.New("db down")}), NewAlerter(cfg), cfg)
	assert.Equal(t, 0, checker.check(context.Background(), zap.NewNop()))
}

func TestChecker_RunStopsOnCancel(t *testing.T) {
	cfg := config.MonitoringConfig{CheckIntervalSecs: 1, LookbackWindowHours: 24}
	checker := NewChecker(NewCollector(&fakeCounter{counts: &store.StatusCounts{}}), NewAlerter(cfg), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Checker.Run did not stop after context cancellation")
	}
}

func TestNotifier_NotifyBatch(t *testing.T) {
	var got BatchReport
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL)
	err := n.NotifyBatch(context.Background(), BatchReport{
		Date:       "2021-06-25",
		Total:      2,
		Succeeded:  2,
		Scraped:    []string{"S100A"},
		NotScraped: []string{"S100B"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "2021-06-25", got.Date)
	assert.Equal(t, []string{"S100B"}, got.NotScraped)
}

func TestNotifier_Disabled(t *testing.T) {
	assert.NoError(t, NewNotifier("").NotifyBatch(context.Background(), BatchReport{}))
}

func TestNotifier_WebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewNotifier(srv.URL).NotifyBatch(context.Background(), BatchReport{ID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}
