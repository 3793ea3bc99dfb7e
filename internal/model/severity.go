package model

import (
	"fmt"
	"strings"
)

// Severity represents the importance of an audit finding.
//
// Severities are iota-based so they can be compared and sorted directly.
// The String() method provides the label used in reports.
type Severity int

const (
	// SeverityLow indicates findings that need a manual look but are unlikely
	// to break navigation. Example: an external link that could not be probed.
	SeverityLow Severity = iota

	// SeverityMedium indicates findings that likely degrade the user experience.
	// Example: an external link answering with a 4xx or 5xx status.
	SeverityMedium

	// SeverityCritical indicates links that point to routes the application
	// does not serve. These are broken for every visitor.
	SeverityCritical
)

// Severities lists all severity levels from most to least important.
// Reports iterate this slice so that critical findings come first.
var Severities = []Severity{SeverityCritical, SeverityMedium, SeverityLow}

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Key returns the lower-case key used for this severity in JSON reports
// and in the stored severity summary.
func (s Severity) Key() string {
	return strings.ToLower(s.String())
}

// ParseSeverity returns the severity for a case-insensitive label such as
// "critical" or "LOW".
func ParseSeverity(label string) (Severity, error) {
	for _, s := range Severities {
		if strings.EqualFold(label, s.String()) {
			return s, nil
		}
	}
	return SeverityLow, fmt.Errorf("unknown severity %q (valid: critical, medium, low)", label)
}

// Finding types produced by linkaudit.
const (
	// FindingBrokenRoute is an internal link that matches no known route.
	FindingBrokenRoute = "broken_route"

	// FindingExternalStatus is an external link answering with an error status.
	FindingExternalStatus = "external_status"

	// FindingExternalUnreachable is an external link that could not be probed.
	FindingExternalUnreachable = "external_unreachable"
)

// FindingInfo contains metadata about a finding type: its severity and
// the remediation recommendation shown in reports.
type FindingInfo struct {
	Severity       Severity
	Recommendation string
}

// findingInfoMapping is the single source of truth for how severe each
// finding type is.
var findingInfoMapping = map[string]FindingInfo{
	FindingBrokenRoute: {
		Severity:       SeverityCritical,
		Recommendation: "Verify that the route exists or correct the link",
	},
	FindingExternalStatus: {
		Severity:       SeverityMedium,
		Recommendation: "Verify or update the link",
	},
	FindingExternalUnreachable: {
		Severity:       SeverityLow,
		Recommendation: "Verify the link manually",
	},
}

// GetSeverity returns the severity level for a finding type.
// Returns SeverityLow if the finding type is not in the mapping.
func GetSeverity(findingType string) Severity {
	return GetFindingInfo(findingType).Severity
}

// GetFindingInfo returns the full finding information for a finding type.
// Unknown types are reported as low severity.
func GetFindingInfo(findingType string) FindingInfo {
	if info, ok := findingInfoMapping[findingType]; ok {
		return info
	}
	return FindingInfo{
		Severity:       SeverityLow,
		Recommendation: "Investigate the finding manually",
	}
}
