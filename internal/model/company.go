package model

import "time"

// Company is a filer registered with the disclosure registry.
type Company struct {
	EdinetCode string    `json:"edinet_code"`
	Code       string    `json:"code,omitempty"` // securities code, empty when unlisted
	Name       string    `json:"name"`
	Industry   string    `json:"industry,omitempty"`
	Removed    bool      `json:"removed"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsListed reports whether the company has a securities code.
func (c *Company) IsListed() bool {
	return c.Code != ""
}
