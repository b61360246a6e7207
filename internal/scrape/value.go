package scrape

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/width"
)

// ErrUnparseable means a cell held text that is not a number. Callers store
// the value as unknown.
var ErrUnparseable = eris.New("scrape: value is not a number")

var (
	footnoteMarks = regexp.MustCompile(`※[0-9０-９]*|注[0-9０-９]+|\*[0-9]+`)
	dashOnly      = regexp.MustCompile(`^[-－―‐ー]+$`)
)

// ParseValue converts a statement cell such as "※2 △1,234" to a number.
// Footnote marks, 株, spaces and separators are ignored; a lone dash is zero
// and △ or ▲ negates. Blank cells yield nil without error.
func ParseValue(raw string) (*int64, error) {
	s := footnoteMarks.ReplaceAllString(raw, "")
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '株' || r == ',' || r == '，':
			return -1
		case isSpace(r) || r == '\u3000':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return nil, nil
	}
	if dashOnly.MatchString(s) {
		zero := int64(0)
		return &zero, nil
	}

	negative := false
	if rest, ok := strings.CutPrefix(s, "△"); ok {
		s, negative = rest, true
	} else if rest, ok := strings.CutPrefix(s, "▲"); ok {
		s, negative = rest, true
	}

	n, err := strconv.ParseInt(width.Narrow.String(s), 10, 64)
	if err != nil {
		return nil, eris.Wrapf(ErrUnparseable, "%q", raw)
	}
	if negative {
		n = -n
	}
	return &n, nil
}

// ParseAmount is ParseValue scaled by the table unit. Amounts that do not
// fit in an int64 once scaled are unparseable.
func ParseAmount(raw string, unit Unit) (*int64, error) {
	v, err := ParseValue(raw)
	if err != nil || v == nil {
		return v, err
	}
	if unit > 1 && (*v > math.MaxInt64/int64(unit) || *v < math.MinInt64/int64(unit)) {
		return nil, eris.Wrapf(ErrUnparseable, "%q overflows at unit %d", raw, unit)
	}
	scaled := *v * int64(unit)
	return &scaled, nil
}
