// Package company loads the registry's filer code list into the company
// master.
package company

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/width"

	"github.com/sells-group/edinet-cli/internal/fetcher"
	"github.com/sells-group/edinet-cli/internal/model"
)

// Code list columns, compared after width folding.
const (
	colEdinetCode = "EDINETコード"
	colName       = "提出者名"
	colIndustry   = "提出者業種"
	colSecCode    = "証券コード"
)

// ErrMissingColumn is returned when the code list lacks a required column.
var ErrMissingColumn = eris.New("company: code list column missing")

// Upserter writes a company row.
type Upserter interface {
	UpsertCompany(ctx context.Context, c model.Company) error
}

// Result reports an import.
type Result struct {
	Rows     int `json:"rows"`
	Upserted int `json:"upserted"`
	Skipped  int `json:"skipped"`
}

// Importer reads the Shift_JIS code list published by the registry. Its
// first line is a download banner; the second is the header.
type Importer struct {
	store Upserter
	log   *zap.Logger
}

// NewImporter creates an Importer.
func NewImporter(st Upserter) *Importer {
	return &Importer{store: st, log: zap.L().With(zap.String("component", "company"))}
}

// ImportFile imports the code list at path.
func (i *Importer) ImportFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "company: open %s", path)
	}
	defer func() { _ = f.Close() }()
	return i.Import(ctx, f)
}

// Import upserts every row carrying an EDINET code.
func (i *Importer) Import(ctx context.Context, r io.Reader) (*Result, error) {
	headerCh := make(chan []string, 1)
	rows, errs := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		Encoding:  japanese.ShiftJIS,
		SkipLines: 1,
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	res := &Result{}
	var cols map[string]int
	for row := range rows {
		if cols == nil {
			// The header is buffered before the first row is sent.
			var err error
			if cols, err = columns(<-headerCh); err != nil {
				drain(rows)
				return nil, err
			}
		}
		res.Rows++

		c := model.Company{
			EdinetCode: field(row, cols[colEdinetCode]),
			Name:       field(row, cols[colName]),
			Industry:   field(row, cols[colIndustry]),
			Code:       field(row, cols[colSecCode]),
		}
		if c.EdinetCode == "" || c.Name == "" {
			res.Skipped++
			continue
		}
		if err := i.store.UpsertCompany(ctx, c); err != nil {
			drain(rows)
			return res, eris.Wrapf(err, "company: upsert %s", c.EdinetCode)
		}
		res.Upserted++
	}
	if err := <-errs; err != nil {
		return res, eris.Wrap(err, "company: read code list")
	}

	i.log.Info("company import complete",
		zap.Int("rows", res.Rows),
		zap.Int("upserted", res.Upserted),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

func columns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for idx, h := range header {
		cols[width.Fold.String(strings.TrimSpace(h))] = idx
	}
	for _, want := range []string{colEdinetCode, colName, colIndustry, colSecCode} {
		if _, ok := cols[want]; !ok {
			return nil, eris.Wrapf(ErrMissingColumn, "company: %s", want)
		}
	}
	return cols, nil
}

func field(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}

func drain(rows <-chan []string) {
	for range rows {
	}
}
