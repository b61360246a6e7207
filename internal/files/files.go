// Package files manages document archives on local storage: download from
// the registry, extraction, and discovery of already extracted documents.
package files

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-cli/internal/fetcher"
)

var (
	// ErrDownload classifies transport failures while fetching an archive.
	ErrDownload = eris.New("files: download failed")
	// ErrDecode classifies archive format failures while extracting.
	ErrDecode = eris.New("files: decode failed")
)

// Acquirer fetches a document archive to a local path. *edinet.Client
// satisfies it.
type Acquirer interface {
	Acquire(ctx context.Context, documentID, path string) error
}

// Options configures storage roots.
type Options struct {
	ArchiveRoot string
	DecodeRoot  string
}

// Client downloads and extracts document archives.
type Client struct {
	acq  Acquirer
	opts Options
	log  *zap.Logger
}

// NewClient creates a Client.
func NewClient(acq Acquirer, opts Options) *Client {
	return &Client{
		acq:  acq,
		opts: opts,
		log:  zap.L().With(zap.String("component", "files")),
	}
}

// dateDir is {yyyy}/{MM}/{yyyy-mm-dd}.
func dateDir(date time.Time) string {
	return filepath.Join(date.Format("2006"), date.Format("01"), date.Format(time.DateOnly))
}

// ArchivePath returns where a document's archive is stored.
func (c *Client) ArchivePath(submitDate time.Time, documentID string) string {
	return filepath.Join(c.opts.ArchiveRoot, dateDir(submitDate), documentID+".zip")
}

// DecodeDir returns where a document's archive is extracted.
func (c *Client) DecodeDir(submitDate time.Time, documentID string) string {
	return filepath.Join(c.opts.DecodeRoot, dateDir(submitDate), documentID)
}

// ScrapeDir returns the directory holding a document's statement files.
func (c *Client) ScrapeDir(submitDate time.Time, documentID string) string {
	return filepath.Join(c.DecodeDir(submitDate, documentID), "XBRL", "PublicDoc")
}

// Download fetches a document's archive. Failures wrap ErrDownload.
func (c *Client) Download(ctx context.Context, submitDate time.Time, documentID string) error {
	path := c.ArchivePath(submitDate, documentID)
	if err := c.acq.Acquire(ctx, documentID, path); err != nil {
		return eris.Wrapf(ErrDownload, "%s: %v", documentID, err)
	}
	c.log.Info("archive downloaded",
		zap.String("document_id", documentID),
		zap.String("path", path),
	)
	return nil
}

// Decode extracts a downloaded archive. Failures wrap ErrDecode and leave no
// partial extraction behind.
func (c *Client) Decode(_ context.Context, submitDate time.Time, documentID string) error {
	archive := c.ArchivePath(submitDate, documentID)
	dest := c.DecodeDir(submitDate, documentID)

	paths, err := fetcher.ExtractZIP(archive, dest)
	if err != nil {
		_ = os.RemoveAll(dest)
		return eris.Wrapf(ErrDecode, "%s: %v", documentID, err)
	}
	c.log.Info("archive decoded",
		zap.String("document_id", documentID),
		zap.Int("files", len(paths)),
	)
	return nil
}

// FindDecodedIDs returns the ids of documents already extracted for a
// submission date, sorted.
func (c *Client) FindDecodedIDs(submitDate time.Time) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(c.opts.DecodeRoot, dateDir(submitDate)))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "files: read decode dir for %s", submitDate.Format(time.DateOnly))
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}
