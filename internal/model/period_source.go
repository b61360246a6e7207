package model

import "time"

// PeriodSource is the registry metadata row kept for every listed document.
// The period resolver reads ParentDocumentID and PeriodEnd from it.
type PeriodSource struct {
	DocumentID           string    `json:"docID"`
	EdinetCode           string    `json:"edinetCode,omitempty"`
	SecCode              string    `json:"secCode,omitempty"`
	JCN                  string    `json:"JCN,omitempty"`
	FilerName            string    `json:"filerName,omitempty"`
	FundCode             string    `json:"fundCode,omitempty"`
	OrdinanceCode        string    `json:"ordinanceCode,omitempty"`
	FormCode             string    `json:"formCode,omitempty"`
	DocTypeCode          string    `json:"docTypeCode,omitempty"`
	PeriodStart          string    `json:"periodStart,omitempty"`
	PeriodEnd            string    `json:"periodEnd,omitempty"`
	SubmitDateTime       string    `json:"submitDateTime,omitempty"`
	DocDescription       string    `json:"docDescription,omitempty"`
	IssuerEdinetCode     string    `json:"issuerEdinetCode,omitempty"`
	SubjectEdinetCode    string    `json:"subjectEdinetCode,omitempty"`
	SubsidiaryEdinetCode string    `json:"subsidiaryEdinetCode,omitempty"`
	CurrentReportReason  string    `json:"currentReportReason,omitempty"`
	ParentDocumentID     string    `json:"parentDocID,omitempty"`
	OpeDateTime          string    `json:"opeDateTime,omitempty"`
	WithdrawalStatus     string    `json:"withdrawalStatus,omitempty"`
	DocInfoEditStatus    string    `json:"docInfoEditStatus,omitempty"`
	DisclosureStatus     string    `json:"disclosureStatus,omitempty"`
	XBRLFlag             string    `json:"xbrlFlag,omitempty"`
	PDFFlag              string    `json:"pdfFlag,omitempty"`
	AttachDocFlag        string    `json:"attachDocFlag,omitempty"`
	EnglishDocFlag       string    `json:"englishDocFlag,omitempty"`
	CreatedAt            time.Time `json:"-"`
}

// TypeCode returns the document type as the closed enum.
func (p *PeriodSource) TypeCode() DocumentTypeCode {
	return ParseDocumentTypeCode(p.DocTypeCode)
}

// QuarterType derives the quarter for quarterly report types.
func (p *PeriodSource) QuarterType() QuarterType {
	if !p.TypeCode().IsQuarterly() {
		return QuarterOther
	}
	return QuarterFromDescription(p.DocDescription)
}
