package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-cli/internal/store"
)

// StatusCounter reads the document status summary.
type StatusCounter interface {
	CountStatuses(ctx context.Context, since time.Time) (*store.StatusCounts, error)
}

type statusCollector struct {
	counter  StatusCounter
	lookback time.Duration
	now      func() time.Time
	docs     *prometheus.Desc
}

// NewStatusCollector reports document counts by state for documents
// submitted within lookback of the scrape time.
func NewStatusCollector(counter StatusCounter, lookback time.Duration) prometheus.Collector {
	return &statusCollector{
		counter:  counter,
		lookback: lookback,
		now:      time.Now,
		docs: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "documents"),
			"Documents submitted within the lookback window, by state.",
			[]string{"state"},
			nil,
		),
	}
}

func (c *statusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.docs
}

// Collect implements prometheus.Collector.
func (c *statusCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	counts, err := c.counter.CountStatuses(ctx, c.now().Add(-c.lookback))
	if err != nil {
		zap.L().Named("status_collector").Error("failed to collect document statuses", zap.Error(err))
		return
	}
	for state, n := range map[string]int{
		"total":         counts.Total,
		"removed":       counts.Removed,
		"not_yet":       counts.NotYet,
		"errored":       counts.Errored,
		"fully_scraped": counts.FullyScraped,
	} {
		ch <- prometheus.MustNewConstMetric(c.docs, prometheus.GaugeValue, float64(n), state)
	}
}
