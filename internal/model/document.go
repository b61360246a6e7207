package model

import "time"

// PeriodSentinel marks a document whose period resolution was attempted and
// produced nothing. A nil period means resolution was never attempted.
var PeriodSentinel = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// Document is a registry document tracked through the processing pipeline.
type Document struct {
	DocumentID       string           `json:"document_id"`
	DocumentTypeCode DocumentTypeCode `json:"document_type_code"`
	QuarterType      QuarterType      `json:"quarter_type,omitempty"`
	EdinetCode       string           `json:"edinet_code,omitempty"`
	ParentDocumentID string           `json:"parent_document_id,omitempty"`
	SubmitDate       time.Time        `json:"submit_date"`
	DocumentPeriod   *time.Time       `json:"document_period,omitempty"`

	Downloaded            Status `json:"downloaded"`
	Decoded               Status `json:"decoded"`
	ScrapedBS             Status `json:"scraped_bs"`
	BSDocumentPath        string `json:"bs_document_path,omitempty"`
	ScrapedPL             Status `json:"scraped_pl"`
	PLDocumentPath        string `json:"pl_document_path,omitempty"`
	ScrapedNumberOfShares Status `json:"scraped_number_of_shares"`
	NSDocumentPath        string `json:"ns_document_path,omitempty"`

	Removed   bool      `json:"removed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasPeriod reports whether period resolution has been attempted.
func (d *Document) HasPeriod() bool {
	return d.DocumentPeriod != nil
}

// IsPeriodSentinel reports whether resolution was attempted and failed.
func (d *Document) IsPeriodSentinel() bool {
	return d.DocumentPeriod != nil && d.DocumentPeriod.Equal(PeriodSentinel)
}

// HasResolvedPeriod reports whether the document has a usable period.
// Consumers that must skip unresolved documents filter on this.
func (d *Document) HasResolvedPeriod() bool {
	return d.DocumentPeriod != nil && !d.DocumentPeriod.Equal(PeriodSentinel)
}

// StageStatus returns the stored status for a substage.
func (d *Document) StageStatus(s Stage) Status {
	switch s {
	case StageDownload:
		return d.Downloaded
	case StageDecode:
		return d.Decoded
	case StageBS:
		return d.ScrapedBS
	case StagePL:
		return d.ScrapedPL
	case StageShares:
		return d.ScrapedNumberOfShares
	}
	return ""
}

// StagePath returns the source file recorded for a scrape substage.
func (d *Document) StagePath(s Stage) string {
	switch s {
	case StageBS:
		return d.BSDocumentPath
	case StagePL:
		return d.PLDocumentPath
	case StageShares:
		return d.NSDocumentPath
	}
	return ""
}

// IsFullyScraped reports whether every scrape substage is DONE.
func (d *Document) IsFullyScraped() bool {
	for _, s := range ScrapeStages {
		if d.StageStatus(s) != StatusDone {
			return false
		}
	}
	return true
}

// AllScrapesFailed reports whether every scrape substage is ERROR.
func (d *Document) AllScrapesFailed() bool {
	for _, s := range ScrapeStages {
		if d.StageStatus(s) != StatusError {
			return false
		}
	}
	return true
}

// PeriodYear returns the fiscal year of a resolved period, or 0.
func (d *Document) PeriodYear() int {
	if !d.HasResolvedPeriod() {
		return 0
	}
	return d.DocumentPeriod.Year()
}
