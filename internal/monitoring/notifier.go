package monitoring

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BatchReport summarizes one batch run for downstream consumers.
type BatchReport struct {
	ID          string    `json:"id"`
	Date        string    `json:"date"`
	Total       int       `json:"total"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	Scraped     []string  `json:"scraped"`
	NotScraped  []string  `json:"not_scraped"`
	Analyzed    []string  `json:"analyzed"`
	NotAnalyzed []string  `json:"not_analyzed"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Notifier posts batch reports to a webhook. A zero URL disables it.
type Notifier struct {
	url    string
	client *http.Client
}

// NewNotifier creates a Notifier for url.
func NewNotifier(url string) *Notifier {
	return &Notifier{url: url, client: &http.Client{Timeout: 10 * time.Second}}
}

// NotifyBatch posts the report, assigning an ID when it has none.
func (n *Notifier) NotifyBatch(ctx context.Context, report BatchReport) error {
	if n.url == "" {
		return nil
	}
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if err := postJSON(ctx, n.client, n.url, report); err != nil {
		return err
	}
	zap.L().Info("monitoring: batch report sent",
		zap.String("report_id", report.ID),
		zap.String("date", report.Date),
		zap.Int("not_scraped", len(report.NotScraped)),
	)
	return nil
}
