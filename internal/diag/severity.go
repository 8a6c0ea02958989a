package diag

import "strings"

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

var severityLabels = [...]string{SevInfo: "info", SevWarning: "warning", SevError: "error"}

// Label is the lower-case name used in config files, golden output and SARIF.
func (s Severity) Label() string {
	if int(s) < len(severityLabels) {
		return severityLabels[s]
	}
	return "unknown"
}

// String is the upper-case form shown in terminal headers.
func (s Severity) String() string { return strings.ToUpper(s.Label()) }

// ParseSeverity accepts a label in any case.
func ParseSeverity(s string) (Severity, bool) {
	for i, label := range severityLabels {
		if strings.EqualFold(s, label) {
			return Severity(i), true
		}
	}
	return SevInfo, false
}
