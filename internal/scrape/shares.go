package scrape

import (
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html/atom"
)

// ScrapeSingleValue reads the number of issued shares at period end from
// the table anchored by keyword. The value sits in the column of the
// "issued at period end" caption and the row of the total (計).
func (s *Scraper) ScrapeSingleValue(path, keyword string) (string, error) {
	doc, err := parseFile(path)
	if err != nil {
		return "", err
	}
	tables := selectAll(elementsByName(doc, keyword), atom.Table)
	rows := rowCells(selectAll(tables, atom.Tr))
	if len(rows) == 0 {
		return "", eris.Wrapf(ErrScrape, "%s: no shares table", path)
	}

	col := -1
	for _, r := range rows {
		if i := slices.IndexFunc(r, isIssuedCaption); i >= 0 {
			col = i
			break
		}
	}
	if col < 0 {
		return "", eris.Wrapf(ErrScrape, "%s: no issued shares caption", path)
	}

	for _, r := range rows {
		if !slices.ContainsFunc(r, isTotalCaption) {
			continue
		}
		if col >= len(r) {
			return "", eris.Wrapf(ErrScrape, "%s: total row has %d cells", path, len(r))
		}
		s.log.Debug("scraped shares",
			zap.String("path", path), zap.String("keyword", keyword), zap.String("value", r[col]))
		return r[col], nil
	}
	return "", eris.Wrapf(ErrScrape, "%s: no total row", path)
}

// isIssuedCaption matches the annual and quarterly wordings of
// "issued shares at period end".
func isIssuedCaption(td string) bool {
	has := func(parts ...string) bool {
		for _, p := range parts {
			if !strings.Contains(td, p) {
				return false
			}
		}
		return true
	}
	return has("事業", "年度", "末", "現在", "発行") ||
		has("当期", "末", "現在", "発行", "数") ||
		has("四半期", "末", "発行", "数") ||
		has("四半期", "末", "現在", "発行", "株")
}

func isTotalCaption(td string) bool {
	return strings.Contains(td, "計") && !strings.Contains(td, "会計")
}
