// Package report exports document projections as spreadsheets.
package report

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/edinet-cli/internal/model"
)

// Header is the first row of every exported sheet.
var Header = []string{
	"document_id", "edinet_code", "document_type", "quarter_type", "submit_date", "document_period",
	"downloaded", "decoded", "scraped_bs", "scraped_pl", "scraped_number_of_shares", "removed",
}

// WriteXLSX writes docs to a single sheet at path.
func WriteXLSX(path, sheetName string, docs []model.Document) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrapf(err, "report: add sheet %q", sheetName)
	}

	addRow(sheet, Header)
	for _, d := range docs {
		addRow(sheet, Row(d))
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

// Row renders a document as sheet cells in Header order.
func Row(d model.Document) []string {
	period := ""
	if d.DocumentPeriod != nil {
		period = d.DocumentPeriod.Format(time.DateOnly)
	}
	removed := "0"
	if d.Removed {
		removed = "1"
	}
	return []string{
		d.DocumentID,
		d.EdinetCode,
		string(d.DocumentTypeCode),
		string(d.QuarterType),
		d.SubmitDate.Format(time.DateOnly),
		period,
		string(d.Downloaded),
		string(d.Decoded),
		string(d.ScrapedBS),
		string(d.ScrapedPL),
		string(d.ScrapedNumberOfShares),
		removed,
	}
}

func addRow(sheet *xlsx.Sheet, cells []string) {
	row := sheet.AddRow()
	for _, v := range cells {
		row.AddCell().SetString(v)
	}
}
