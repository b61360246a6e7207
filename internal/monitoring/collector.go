package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/edinet-cli/internal/store"
)

// Snapshot holds a point-in-time view of document progress.
type Snapshot struct {
	Total        int     `json:"total"`
	Removed      int     `json:"removed"`
	NotYet       int     `json:"not_yet"`
	Errored      int     `json:"errored"`
	FullyScraped int     `json:"fully_scraped"`
	ErrorRate    float64 `json:"error_rate"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// StatusCounter counts document statuses submitted since a cutoff.
type StatusCounter interface {
	CountStatuses(ctx context.Context, since time.Time) (*store.StatusCounts, error)
}

// Collector gathers snapshots from the store.
type Collector struct {
	counter StatusCounter
	now     func() time.Time
}

// NewCollector creates a new snapshot collector.
func NewCollector(counter StatusCounter) *Collector {
	return &Collector{counter: counter, now: time.Now}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := c.now().UTC()
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	counts, err := c.counter.CountStatuses(ctx, cutoff)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count statuses")
	}

	snap := &Snapshot{
		Total:         counts.Total,
		Removed:       counts.Removed,
		NotYet:        counts.NotYet,
		Errored:       counts.Errored,
		FullyScraped:  counts.FullyScraped,
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}
	if counts.Total > 0 {
		snap.ErrorRate = float64(counts.Errored) / float64(counts.Total)
	}
	return snap, nil
}
