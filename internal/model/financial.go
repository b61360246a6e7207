package model

import "time"

// CreatedType records how a financial value was entered.
type CreatedType string

const (
	CreatedAuto   CreatedType = "0"
	CreatedManual CreatedType = "1"
)

// DefaultKeywordPriority is the ordering weight of keywords without one.
const DefaultKeywordPriority = 99

// ScrapingKeyword names the XBRL element that anchors a statement table.
type ScrapingKeyword struct {
	Stage    Stage  `yaml:"stage" json:"stage"`
	Keyword  string `yaml:"keyword" json:"keyword"`
	Priority *int   `yaml:"priority,omitempty" json:"priority,omitempty"`
	Remarks  string `yaml:"remarks,omitempty" json:"remarks,omitempty"`
}

// Weight returns the priority used for ordering.
func (k ScrapingKeyword) Weight() int {
	if k.Priority == nil {
		return DefaultKeywordPriority
	}
	return *k.Priority
}

// Subject is an account caption of a statement, e.g. 流動資産合計.
type Subject struct {
	Stage Stage  `yaml:"stage" json:"stage"`
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
}

// SharesSubjectID is the subject id under which the share count is stored.
const SharesSubjectID = "0"

// FinancialValue is one extracted number of a document's statement.
type FinancialValue struct {
	EdinetCode       string           `json:"edinet_code"`
	CompanyCode      string           `json:"company_code,omitempty"`
	Stage            Stage            `json:"stage"`
	SubjectID        string           `json:"subject_id"`
	PeriodStart      string           `json:"period_start,omitempty"`
	PeriodEnd        string           `json:"period_end"`
	Value            *int64           `json:"value,omitempty"`
	DocumentTypeCode DocumentTypeCode `json:"document_type_code"`
	QuarterType      QuarterType      `json:"quarter_type,omitempty"`
	SubmitDate       time.Time        `json:"submit_date"`
	DocumentID       string           `json:"document_id"`
	CreatedType      CreatedType      `json:"created_type"`
	CreatedAt        time.Time        `json:"created_at"`
}
