// Package fetcher downloads registry resources over HTTP and unpacks the
// archives and CSV files they deliver.
package fetcher

import (
	"context"
	"io"
	"net/http"
)

// Fetcher retrieves remote resources.
type Fetcher interface {
	// Get performs a GET and returns the response of a 2xx status. The
	// caller closes the body.
	Get(ctx context.Context, url string) (*http.Response, error)

	// Download returns the body of a successful GET.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile writes the body of a successful GET to path and returns
	// the bytes written and the response content type.
	DownloadToFile(ctx context.Context, url string, path string) (int64, string, error)
}
