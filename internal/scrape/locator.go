package scrape

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Scrape failure classes. The pipeline records both as a stage ERROR.
var (
	// ErrNoMatchingFile means no file matched any keyword of a statement.
	ErrNoMatchingFile = eris.New("scrape: no file matched the statement keywords")
	// ErrMultipleFiles means a keyword anchored a table in more than one file.
	ErrMultipleFiles = eris.New("scrape: keyword matched multiple files")
	// ErrScrape means the matched table had an unexpected shape.
	ErrScrape = eris.New("scrape: unexpected table layout")
)

// bodyFileMarker selects the main-body files of a decoded submission.
const bodyFileMarker = "honbun"

// Locator finds the decoded file holding a keyword-anchored table.
type Locator struct {
	log *zap.Logger
}

// NewLocator creates a Locator.
func NewLocator() *Locator {
	return &Locator{log: zap.L().With(zap.String("component", "scrape.locator"))}
}

// LocateFile returns the single body file under dir containing a non-empty
// element named keyword. An empty path with a nil error means no file
// matched; more than one match is ErrMultipleFiles.
func (l *Locator) LocateFile(dir, keyword string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", eris.Wrapf(err, "scrape: read dir %s", dir)
	}

	var matches []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.Contains(e.Name(), bodyFileMarker) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		ok, err := containsKeyword(path, keyword)
		if err != nil {
			return "", err
		}
		if ok {
			matches = append(matches, path)
		}
	}
	sort.Strings(matches)

	switch len(matches) {
	case 0:
		l.log.Debug("no file for keyword", zap.String("dir", dir), zap.String("keyword", keyword))
		return "", nil
	case 1:
		l.log.Debug("located file", zap.String("path", matches[0]), zap.String("keyword", keyword))
		return matches[0], nil
	default:
		l.log.Error("multiple files for keyword",
			zap.String("keyword", keyword), zap.Strings("files", matches))
		return "", eris.Wrapf(ErrMultipleFiles, "%s in %d files", keyword, len(matches))
	}
}

func containsKeyword(path, keyword string) (bool, error) {
	doc, err := parseFile(path)
	if err != nil {
		return false, err
	}
	for _, n := range elementsByName(doc, keyword) {
		if text(n) != "" {
			return true, nil
		}
	}
	return false, nil
}
