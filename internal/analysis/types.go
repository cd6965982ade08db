package analysis

import "strings"

// Mode selects which agent identity and output schema a run uses.
type Mode string

const (
	// ModeStatusCheck determines lifecycle status (Active/Obsolete/Review) per part.
	ModeStatusCheck Mode = "status_check"
	// ModeFindReplacement looks up documented replacements for obsolete parts.
	ModeFindReplacement Mode = "find_replacement"
)

// ProductRecord identifies one part to analyze. Uploaded lists and rows read
// back from the parts table name the same fields differently, so both
// conventions are accepted and resolved by first-non-empty precedence.
type ProductRecord struct {
	Manufacturer           string `json:"manufacturer,omitempty"`
	PartNumber             string `json:"part_number,omitempty"`
	PartManufacturer       string `json:"part_manufacturer,omitempty"`
	ManufacturerPartNumber string `json:"manufacturer_part_number,omitempty"`
	PartNumberAIModified   string `json:"part_number_ai_modified,omitempty"`
	StockingDecision       string `json:"stocking_decision,omitempty"`
}

// ResolvedManufacturer returns the manufacturer under either naming convention.
func (p ProductRecord) ResolvedManufacturer() string {
	if v := strings.TrimSpace(p.PartManufacturer); v != "" {
		return v
	}
	return strings.TrimSpace(p.Manufacturer)
}

// ResolvedPartNumber returns the part number under either naming convention.
func (p ProductRecord) ResolvedPartNumber() string {
	if v := strings.TrimSpace(p.ManufacturerPartNumber); v != "" {
		return v
	}
	if v := strings.TrimSpace(p.PartNumber); v != "" {
		return v
	}
	return strings.TrimSpace(p.PartNumberAIModified)
}

// ResultItem is one per-part analysis outcome. The field set depends on the
// run mode (status check vs replacement finding); per-item validation is the
// consumer's concern, so items stay schemaless here.
type ResultItem map[string]any

// ResultSet is the ordered collection of per-part outcomes produced by a run.
// CheckedDate is only populated by replacement-finding runs.
type ResultSet struct {
	CheckedDate string       `json:"checked_date,omitempty"`
	Results     []ResultItem `json:"results"`
}

// Envelope is the uniform return value of one batch's analysis attempt.
// Success stays true even when the rows are synthesized fallbacks; only a
// request that could not be formed at all surfaces Success=false.
type Envelope struct {
	Success        bool
	ConversationID string
	RawText        string
	Parsed         *ResultSet
	BatchSize      int
	Err            string
}
