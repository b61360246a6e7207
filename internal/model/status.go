package model

import "github.com/rotisserie/eris"

// Status is the processing state of one substage of a Document.
// Values are the codes persisted in the document table.
type Status string

const (
	StatusNotYet  Status = "0"
	StatusDone    Status = "1"
	StatusHalfWay Status = "5"
	StatusError   Status = "9"
)

// String returns a readable name for the status code.
func (s Status) String() string {
	switch s {
	case StatusNotYet:
		return "NOT_YET"
	case StatusDone:
		return "DONE"
	case StatusHalfWay:
		return "HALF_WAY"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN(" + string(s) + ")"
	}
}

// IsValid reports whether s is one of the known codes.
func (s Status) IsValid() bool {
	switch s {
	case StatusNotYet, StatusDone, StatusHalfWay, StatusError:
		return true
	}
	return false
}

// ParseStatus accepts either the stored code ("1") or the readable name ("DONE").
func ParseStatus(v string) (Status, error) {
	for _, s := range []Status{StatusNotYet, StatusDone, StatusHalfWay, StatusError} {
		if v == string(s) || v == s.String() {
			return s, nil
		}
	}
	return "", eris.Errorf("model: unknown status %q", v)
}

// Stage identifies one of the five tracked substages of a Document.
type Stage string

const (
	StageDownload Stage = "download"
	StageDecode   Stage = "decode"
	StageBS       Stage = "bs"
	StagePL       Stage = "pl"
	StageShares   Stage = "ns"
)

// ScrapeStages lists the extraction substages in processing order.
var ScrapeStages = []Stage{StageBS, StagePL, StageShares}

// IsScrape reports whether the stage is one of the extraction substages.
func (s Stage) IsScrape() bool {
	return s == StageBS || s == StagePL || s == StageShares
}

// StatementID is the financial statement id recorded with extracted values.
// Only scrape stages have one.
func (s Stage) StatementID() string {
	switch s {
	case StageBS:
		return "1"
	case StagePL:
		return "2"
	case StageShares:
		return "4"
	}
	return ""
}

// Label is the Japanese statement name used in logs and reports.
func (s Stage) Label() string {
	switch s {
	case StageDownload:
		return "ダウンロード"
	case StageDecode:
		return "ファイル解凍"
	case StageBS:
		return "貸借対照表"
	case StagePL:
		return "損益計算書"
	case StageShares:
		return "株式総数"
	}
	return string(s)
}

// ParseStage parses a stage name.
func ParseStage(v string) (Stage, error) {
	for _, s := range []Stage{StageDownload, StageDecode, StageBS, StagePL, StageShares} {
		if v == string(s) {
			return s, nil
		}
	}
	return "", eris.Errorf("model: unknown stage %q", v)
}
