package pipeline

import (
	"errors"

	"go.uber.org/zap"

	"github.com/sells-group/edinet-cli/internal/master"
	"github.com/sells-group/edinet-cli/internal/model"
	"github.com/sells-group/edinet-cli/internal/scrape"
)

// Statement is one of the three scrape substages. The set is closed: each
// variant knows its stage and how to turn a located file into values.
type Statement interface {
	Stage() model.Stage
	extract(x *extraction, path, keyword string) ([]model.FinancialValue, error)
}

// BalanceSheet reads the balance sheet table.
type BalanceSheet struct{}

// ProfitAndLoss reads the income statement table.
type ProfitAndLoss struct{}

// NumberOfShares reads the issued share count.
type NumberOfShares struct{}

// Statements lists every scrape substage in processing order.
var Statements = []Statement{BalanceSheet{}, ProfitAndLoss{}, NumberOfShares{}}

func (BalanceSheet) Stage() model.Stage   { return model.StageBS }
func (ProfitAndLoss) Stage() model.Stage  { return model.StagePL }
func (NumberOfShares) Stage() model.Stage { return model.StageShares }

// extraction carries what a statement needs to build values for one
// document.
type extraction struct {
	doc      model.Document
	base     model.FinancialValue
	scraper  TableScraper
	subjects SubjectMaster
	log      *zap.Logger
}

func (x *extraction) value(stage model.Stage, subjectID string, v *int64) model.FinancialValue {
	fv := x.base
	fv.Stage = stage
	fv.SubjectID = subjectID
	fv.Value = v
	return fv
}

// tableValues maps caption rows onto known subjects. The first row of a
// subject wins; unparseable cells are stored as unknown.
func (x *extraction) tableValues(stage model.Stage, path, keyword string) ([]model.FinancialValue, error) {
	rows, err := x.scraper.ScrapeTable(path, keyword)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []model.FinancialValue
	for _, row := range rows {
		subject, ok := x.subjects.FindSubject(stage, row.Subject)
		if !ok || seen[subject.ID] {
			continue
		}
		seen[subject.ID] = true
		v, err := scrape.ParseAmount(row.Current, row.Unit)
		if errors.Is(err, scrape.ErrUnparseable) {
			x.log.Warn("unparseable value stored as unknown",
				zap.String("subject", row.Subject), zap.String("raw", row.Current))
		}
		out = append(out, x.value(stage, subject.ID, v))
	}
	return out, nil
}

func (s BalanceSheet) extract(x *extraction, path, keyword string) ([]model.FinancialValue, error) {
	values, err := x.tableValues(s.Stage(), path, keyword)
	if err != nil {
		return nil, err
	}
	return completeBalanceSheet(x, values), nil
}

// completeBalanceSheet adds zero lines some filers omit: fixed liabilities
// when current liabilities equal total liabilities, and investments and
// other assets on quarterly reports.
func completeBalanceSheet(x *extraction, values []model.FinancialValue) []model.FinancialValue {
	byID := make(map[string]*int64, len(values))
	for _, v := range values {
		byID[v.SubjectID] = v.Value
	}
	zero := func() *int64 { z := int64(0); return &z }

	current, total := byID[master.SubjectTotalCurrentLiabilities], byID[master.SubjectTotalLiabilities]
	if _, ok := byID[master.SubjectTotalFixedLiabilities]; !ok && current != nil && total != nil && *current == *total {
		values = append(values, x.value(model.StageBS, master.SubjectTotalFixedLiabilities, zero()))
		x.log.Info("fixed liabilities absent, stored as zero", zap.Int64("total_liabilities", *total))
	}
	if _, ok := byID[master.SubjectTotalInvestmentsAndOtherAssets]; !ok && x.doc.DocumentTypeCode.IsQuarterly() {
		values = append(values, x.value(model.StageBS, master.SubjectTotalInvestmentsAndOtherAssets, zero()))
		x.log.Info("investments and other assets absent, stored as zero")
	}
	return values
}

func (s ProfitAndLoss) extract(x *extraction, path, keyword string) ([]model.FinancialValue, error) {
	return x.tableValues(s.Stage(), path, keyword)
}

func (s NumberOfShares) extract(x *extraction, path, keyword string) ([]model.FinancialValue, error) {
	raw, err := x.scraper.ScrapeSingleValue(path, keyword)
	if err != nil {
		return nil, err
	}
	v, err := scrape.ParseValue(raw)
	if errors.Is(err, scrape.ErrUnparseable) {
		x.log.Warn("unparseable share count stored as unknown", zap.String("raw", raw))
	}
	return []model.FinancialValue{x.value(s.Stage(), model.SharesSubjectID, v)}, nil
}
