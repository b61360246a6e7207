package scrape

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/width"
)

// Unit is the monetary multiplier declared on a statement table.
type Unit int64

const (
	UnitThousands Unit = 1_000
	UnitMillions  Unit = 1_000_000
)

var unitLabels = []struct {
	unit   Unit
	labels []string
}{
	{UnitThousands, []string{"単位：千円", "単位:千円", "単位　千円", "金額（千円）", "（千円）"}},
	{UnitMillions, []string{"単位：百万円", "単位:百万円", "単位　百万円", "金額（百万円）", "（百万円）"}},
}

// Row is one caption of a statement table with its raw cell values.
// Previous is empty for tables that only carry the current period.
type Row struct {
	Subject  string
	Previous string
	Current  string
	Unit     Unit
}

// droppedCells never carry a caption or a value.
var droppedCells = map[string]bool{"": true, " ": true, "円": true}

// Scraper reads statement tables from located files.
type Scraper struct {
	log *zap.Logger
}

// NewScraper creates a Scraper.
func NewScraper() *Scraper {
	return &Scraper{log: zap.L().With(zap.String("component", "scrape.table"))}
}

// ScrapeTable reads the caption rows of the table anchored by keyword.
func (s *Scraper) ScrapeTable(path, keyword string) ([]Row, error) {
	doc, err := parseFile(path)
	if err != nil {
		return nil, err
	}
	anchors := elementsByName(doc, keyword)
	tables := selectAll(anchors, atom.Table)

	unit, err := detectUnit(tables)
	if err != nil {
		return nil, eris.Wrapf(err, "%s", path)
	}

	var rows [][]string
	for _, cells := range rowCells(selectAll(tables, atom.Tr)) {
		kept := cells[:0]
		for _, c := range cells {
			if !droppedCells[c] {
				kept = append(kept, c)
			}
		}
		if len(kept) > 0 {
			rows = append(rows, kept)
		}
	}
	if len(rows) < 2 {
		return nil, eris.Wrapf(ErrScrape, "%s: table has %d rows", path, len(rows))
	}

	// Row 1 is the period header; drop the notes column caption.
	header := rows[1][:0]
	for _, c := range rows[1] {
		if !strings.Contains(c, "注記") {
			header = append(header, c)
		}
	}
	rows[1] = header

	widest := 0
	for _, r := range rows {
		widest = max(widest, len(r))
	}

	var out []Row
	switch {
	case widest <= 2:
		for _, r := range rows {
			if len(r) == 2 {
				out = append(out, Row{Subject: r[0], Current: r[1], Unit: unit})
			}
		}
	case widest <= 4:
		currentLast, err := currentIsLast(rows[1])
		if err != nil {
			return nil, eris.Wrapf(err, "%s", path)
		}
		for i, r := range rows {
			if i == 1 {
				continue
			}
			switch len(r) {
			case 2:
				out = append(out, Row{Subject: r[0], Current: r[1], Unit: unit})
			case 3:
				if currentLast {
					out = append(out, Row{Subject: r[0], Previous: r[1], Current: r[2], Unit: unit})
				} else {
					out = append(out, Row{Subject: r[0], Previous: r[2], Current: r[1], Unit: unit})
				}
			}
		}
	default:
		return nil, eris.Wrapf(ErrScrape, "%s: rows of %d cells", path, widest)
	}

	s.log.Debug("scraped table",
		zap.String("path", path), zap.String("keyword", keyword), zap.Int("rows", len(out)))
	return out, nil
}

// detectUnit reads the amount unit from the flattened table text.
func detectUnit(tables []*html.Node) (Unit, error) {
	texts := make([]string, 0, len(tables))
	for _, t := range tables {
		texts = append(texts, text(t))
	}
	for _, u := range unitLabels {
		for _, t := range texts {
			for _, label := range u.labels {
				if strings.Contains(t, label) {
					return u.unit, nil
				}
			}
		}
	}
	return 0, eris.Wrap(ErrScrape, "no amount unit")
}

// currentIsLast decides from the header whether the current period is the
// right-hand column. Headers name periods as 前/当, 第N期 or N年度.
func currentIsLast(header []string) (bool, error) {
	var first, last string
	switch len(header) {
	case 2:
		first, last = header[0], header[1]
	case 3:
		first, last = header[0], header[2]
	default:
		return false, eris.Wrapf(ErrScrape, "header of %d cells", len(header))
	}

	switch {
	case strings.Contains(first, "前") && strings.Contains(last, "当"):
		return true, nil
	case strings.Contains(first, "当") && strings.Contains(last, "前"):
		return false, nil
	}

	if strings.Contains(first, "第") && strings.Contains(first, "期") {
		a, errA := between(first, "第", "期")
		b, errB := between(last, "第", "期")
		if errA != nil || errB != nil {
			return false, eris.Wrapf(ErrScrape, "header %q and %q", first, last)
		}
		if a != b {
			return a < b, nil
		}
	}
	if strings.Contains(first, "年度") {
		a, errA := between(first, "", "年度")
		b, errB := between(last, "", "年度")
		if errA != nil || errB != nil {
			return false, eris.Wrapf(ErrScrape, "header %q and %q", first, last)
		}
		if a != b {
			return a < b, nil
		}
	}
	return false, eris.Wrapf(ErrScrape, "period order of %q and %q", first, last)
}

// between parses the number enclosed by openMark and closeMark. An empty
// openMark reads from the start of s.
func between(s, openMark, closeMark string) (int, error) {
	start := 0
	if openMark != "" {
		i := strings.Index(s, openMark)
		if i < 0 {
			return 0, eris.Errorf("scrape: %q has no %q", s, openMark)
		}
		start = i + len(openMark)
	}
	end := strings.Index(s[start:], closeMark)
	if end < 0 {
		return 0, eris.Errorf("scrape: %q has no %q", s, closeMark)
	}
	n, err := strconv.Atoi(strings.TrimSpace(width.Narrow.String(s[start : start+end])))
	if err != nil {
		return 0, eris.Wrapf(err, "scrape: period number in %q", s)
	}
	return n, nil
}
