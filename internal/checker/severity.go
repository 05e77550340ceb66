package checker

import (
	"fmt"
	"strings"
)

// Severity classifies a finding. The zero value is SeverityInfo.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

// AllSeverities lists every severity from lowest to highest.
var AllSeverities = []Severity{SeverityInfo, SeverityWarning, SeverityCritical}

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "info"
	}
}

// Rank orders severities: info=1, warning=2, critical=3.
func (s Severity) Rank() int {
	return int(s) + 1
}

// Label is the upper-case form used in rendered alerts, e.g. "CRITICAL".
func (s Severity) Label() string {
	return strings.ToUpper(s.String())
}

// ParseSeverity parses "info", "warning" or "critical" in any case.
func ParseSeverity(raw string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "info":
		return SeverityInfo, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "critical":
		return SeverityCritical, nil
	}
	return SeverityInfo, fmt.Errorf("unknown severity %q", raw)
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Aggregate returns the highest severity among findings, or info when there are none.
func Aggregate(findings []Finding) Severity {
	overall := SeverityInfo
	for _, f := range findings {
		if f.Severity.Rank() > overall.Rank() {
			overall = f.Severity
		}
	}
	return overall
}
