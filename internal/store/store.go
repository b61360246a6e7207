// Package store persists documents, registry metadata, filers and extracted
// financial values in Postgres or SQLite.
package store

import (
	"context"
	"time"

	"github.com/sells-group/edinet-cli/internal/model"
)

// Store defines the persistence interface for the document pipeline.
// Every write is a single-row, single-statement operation except
// SavePeriodSources, which is idempotent.
type Store interface {
	// Companies
	InsertCompany(ctx context.Context, c model.Company) error
	UpsertCompany(ctx context.Context, c model.Company) error
	GetCompany(ctx context.Context, edinetCode string) (*model.Company, error)

	// Registry metadata
	SavePeriodSources(ctx context.Context, sources []model.PeriodSource) (int64, error)
	GetPeriodSource(ctx context.Context, documentID string) (*model.PeriodSource, error)

	// Documents
	InsertDocument(ctx context.Context, d model.Document) error
	GetDocument(ctx context.Context, documentID string) (*model.Document, error)
	ListDocumentIDsBySubmitDate(ctx context.Context, submitDate time.Time) ([]string, error)
	ListDocumentsBySubmitDate(ctx context.Context, submitDate time.Time) ([]model.Document, error)
	ListDocumentsByEdinetCode(ctx context.Context, edinetCode string) ([]model.Document, error)
	SetStageStatus(ctx context.Context, documentID string, stage model.Stage, status model.Status, path string) error
	SetStageStatusIf(ctx context.Context, documentID string, stage model.Stage, expect, status model.Status) (bool, error)
	SetAllDone(ctx context.Context, documentID string) error
	SetDocumentPeriod(ctx context.Context, documentID string, period time.Time) error
	SetRemoved(ctx context.Context, documentID string) error

	// Extracted values
	InsertFinancialValue(ctx context.Context, v model.FinancialValue) error
	ListFinancialValues(ctx context.Context, documentID string) ([]model.FinancialValue, error)

	// Valuation
	IsAnalyzed(ctx context.Context, documentID string) (bool, error)

	// Monitoring
	CountStatuses(ctx context.Context, since time.Time) (*StatusCounts, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// StatusCounts summarizes document progress for documents submitted on or
// after a date.
type StatusCounts struct {
	Total        int `json:"total"`
	Removed      int `json:"removed"`
	NotYet       int `json:"not_yet"`
	Errored      int `json:"errored"`
	FullyScraped int `json:"fully_scraped"`
}

// stageColumn maps a stage to its status column and, for scrape stages, the
// column holding the source file path.
type stageColumn struct {
	status string
	path   string
}

var stageColumns = map[model.Stage]stageColumn{
	model.StageDownload: {status: "downloaded"},
	model.StageDecode:   {status: "decoded"},
	model.StageBS:       {status: "scraped_bs", path: "bs_document_path"},
	model.StagePL:       {status: "scraped_pl", path: "pl_document_path"},
	model.StageShares:   {status: "scraped_number_of_shares", path: "ns_document_path"},
}

const documentColumns = `document_id, document_type_code, quarter_type, edinet_code, parent_document_id,
	submit_date, document_period, downloaded, decoded, scraped_bs, bs_document_path, scraped_pl,
	pl_document_path, scraped_number_of_shares, ns_document_path, removed, created_at, updated_at`

const periodSourceColumns = `doc_id, edinet_code, sec_code, jcn, filer_name, fund_code, ordinance_code,
	form_code, doc_type_code, period_start, period_end, submit_date_time, doc_description,
	issuer_edinet_code, subject_edinet_code, subsidiary_edinet_code, current_report_reason,
	parent_doc_id, ope_date_time, withdrawal_status, doc_info_edit_status, disclosure_status,
	xbrl_flag, pdf_flag, attach_doc_flag, english_doc_flag`

const financialValueColumns = `edinet_code, company_code, financial_statement_id, subject_id, period_start,
	period_end, value, document_type_code, quarter_type, submit_date, document_id, created_type, created_at`

// periodSourceColumnList is periodSourceColumns as a slice, for COPY.
var periodSourceColumnList = []string{
	"doc_id", "edinet_code", "sec_code", "jcn", "filer_name", "fund_code", "ordinance_code",
	"form_code", "doc_type_code", "period_start", "period_end", "submit_date_time", "doc_description",
	"issuer_edinet_code", "subject_edinet_code", "subsidiary_edinet_code", "current_report_reason",
	"parent_doc_id", "ope_date_time", "withdrawal_status", "doc_info_edit_status", "disclosure_status",
	"xbrl_flag", "pdf_flag", "attach_doc_flag", "english_doc_flag",
}

func periodSourceValues(p model.PeriodSource) []any {
	return []any{
		p.DocumentID, nullString(p.EdinetCode), nullString(p.SecCode), nullString(p.JCN),
		nullString(p.FilerName), nullString(p.FundCode), nullString(p.OrdinanceCode),
		nullString(p.FormCode), nullString(p.DocTypeCode), nullString(p.PeriodStart),
		nullString(p.PeriodEnd), nullString(p.SubmitDateTime), nullString(p.DocDescription),
		nullString(p.IssuerEdinetCode), nullString(p.SubjectEdinetCode),
		nullString(p.SubsidiaryEdinetCode), nullString(p.CurrentReportReason),
		nullString(p.ParentDocumentID), nullString(p.OpeDateTime), nullString(p.WithdrawalStatus),
		nullString(p.DocInfoEditStatus), nullString(p.DisclosureStatus), nullString(p.XBRLFlag),
		nullString(p.PDFFlag), nullString(p.AttachDocFlag), nullString(p.EnglishDocFlag),
	}
}

// nullString stores empty strings as NULL.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPeriodSource(row scannable) (*model.PeriodSource, error) {
	var p model.PeriodSource
	var cols [25]*string
	dest := []any{&p.DocumentID}
	for i := range cols {
		dest = append(dest, &cols[i])
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	fields := []*string{
		&p.EdinetCode, &p.SecCode, &p.JCN, &p.FilerName, &p.FundCode, &p.OrdinanceCode,
		&p.FormCode, &p.DocTypeCode, &p.PeriodStart, &p.PeriodEnd, &p.SubmitDateTime,
		&p.DocDescription, &p.IssuerEdinetCode, &p.SubjectEdinetCode, &p.SubsidiaryEdinetCode,
		&p.CurrentReportReason, &p.ParentDocumentID, &p.OpeDateTime, &p.WithdrawalStatus,
		&p.DocInfoEditStatus, &p.DisclosureStatus, &p.XBRLFlag, &p.PDFFlag, &p.AttachDocFlag,
		&p.EnglishDocFlag,
	}
	for i, f := range fields {
		*f = derefString(cols[i])
	}
	return &p, nil
}
