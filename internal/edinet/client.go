// Package edinet is the client for the EDINET disclosure registry API (v2):
// the per-date document listing and the document archive download.
package edinet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-cli/internal/fetcher"
	"github.com/sells-group/edinet-cli/internal/model"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.edinet-fsa.go.jp"

// ListType selects what the listing returns.
type ListType int

const (
	// ListMetadata returns the metadata block only.
	ListMetadata ListType = 1
	// ListWithResults returns metadata and every document row.
	ListWithResults ListType = 2
)

// ErrNotArchive is returned when the registry answers a document request
// with an error payload instead of a ZIP archive.
var ErrNotArchive = eris.New("edinet: response is not an archive")

// Metadata is the listing's metadata block.
type Metadata struct {
	Title     string `json:"title"`
	Parameter struct {
		Date string `json:"date"`
		Type string `json:"type"`
	} `json:"parameter"`
	ResultSet struct {
		Count int `json:"count"`
	} `json:"resultset"`
	ProcessDateTime string `json:"processDateTime"`
	Status          string `json:"status"`
	Message         string `json:"message"`
}

// ListResponse is the document listing for one submission date.
type ListResponse struct {
	Metadata Metadata             `json:"metadata"`
	Results  []model.PeriodSource `json:"results"`
}

// Count returns the number of documents the registry reports for the date.
func (r *ListResponse) Count() int {
	return r.Metadata.ResultSet.Count
}

// Options configures a Client.
type Options struct {
	BaseURL string
	APIKey  string
}

// Client calls the registry through a rate limited, retrying fetcher.
type Client struct {
	http    fetcher.Fetcher
	baseURL string
	apiKey  string
	log     *zap.Logger
}

// NewClient creates a Client.
func NewClient(f fetcher.Fetcher, opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		http:    f,
		baseURL: base,
		apiKey:  opts.APIKey,
		log:     zap.L().With(zap.String("component", "edinet")),
	}
}

// List returns the registry listing for date.
func (c *Client) List(ctx context.Context, date time.Time, lt ListType) (*ListResponse, error) {
	q := url.Values{}
	q.Set("date", date.Format(time.DateOnly))
	q.Set("type", fmt.Sprint(int(lt)))
	q.Set("Subscription-Key", c.apiKey)
	endpoint := c.baseURL + "/api/v2/documents.json?" + q.Encode()

	body, err := c.http.Download(ctx, endpoint)
	if err != nil {
		return nil, eris.Wrapf(err, "edinet: list %s", date.Format(time.DateOnly))
	}
	defer body.Close() //nolint:errcheck

	var resp ListResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, eris.Wrapf(err, "edinet: decode list %s", date.Format(time.DateOnly))
	}
	if resp.Metadata.Status != "" && resp.Metadata.Status != "200" {
		return nil, eris.Errorf("edinet: list %s: status %s: %s",
			date.Format(time.DateOnly), resp.Metadata.Status, resp.Metadata.Message)
	}

	c.log.Debug("registry listing fetched",
		zap.String("submit_date", date.Format(time.DateOnly)),
		zap.Int("type", int(lt)),
		zap.Int("count", resp.Count()),
		zap.Int("results", len(resp.Results)),
	)
	return &resp, nil
}

// DocumentURL returns the archive URL of a document.
func (c *Client) DocumentURL(documentID string) string {
	q := url.Values{}
	q.Set("type", "1")
	q.Set("Subscription-Key", c.apiKey)
	return c.baseURL + "/api/v2/documents/" + url.PathEscape(documentID) + "?" + q.Encode()
}

// Acquire downloads a document's archive to path.
func (c *Client) Acquire(ctx context.Context, documentID, path string) error {
	n, contentType, err := c.http.DownloadToFile(ctx, c.DocumentURL(documentID), path)
	if err != nil {
		return eris.Wrapf(err, "edinet: acquire %s", documentID)
	}
	if mediaType, _, _ := mime.ParseMediaType(contentType); mediaType == "application/json" {
		msg := readErrorPayload(path)
		_ = os.Remove(path)
		return eris.Wrapf(ErrNotArchive, "edinet: acquire %s: %s", documentID, msg)
	}
	c.log.Debug("document archive acquired",
		zap.String("document_id", documentID),
		zap.Int64("bytes", n),
	)
	return nil
}

// readErrorPayload extracts the message of a JSON error body written to
// path, for logging.
func readErrorPayload(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return "unreadable error payload"
	}
	defer f.Close() //nolint:errcheck

	var payload struct {
		Metadata struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"metadata"`
	}
	data, _ := io.ReadAll(io.LimitReader(f, 1<<16))
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	return payload.Metadata.Status + " " + payload.Metadata.Message
}
