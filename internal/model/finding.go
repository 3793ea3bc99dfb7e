package model

// Finding is a severity-tagged problem attached to a link occurrence.
// Findings are append-only: they are never merged or deduplicated.
type Finding struct {
	LinkOccurrence

	// Type is the finding type identifier (see findingInfoMapping).
	Type string `json:"type"`

	// Severity is the importance of the finding.
	Severity Severity `json:"severity"`

	// SeverityText is the human-readable severity.
	SeverityText string `json:"severity_text"`

	// Issue describes what is wrong.
	Issue string `json:"issue"`

	// Recommendation tells the user how to address the finding.
	Recommendation string `json:"recommendation"`
}

// NewFinding creates a Finding of the given type for an occurrence.
// Severity and recommendation are taken from the finding type mapping.
func NewFinding(findingType string, occ LinkOccurrence, issue string) Finding {
	info := GetFindingInfo(findingType)
	return Finding{
		LinkOccurrence: occ,
		Type:           findingType,
		Severity:       info.Severity,
		SeverityText:   info.Severity.String(),
		Issue:          issue,
		Recommendation: info.Recommendation,
	}
}

