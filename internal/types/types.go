package types

import (
	"errors"
	"fmt"
	"strings"
)

// Severity is a coarse-grained risk level for a finding.
type Severity string

const (
	SevInfo     Severity = "info"
	SevLow      Severity = "low"
	SevMed      Severity = "medium"
	SevHigh     Severity = "high"
	SevCritical Severity = "critical"
)

// ErrInvalidSeverity is returned when a value is not on the severity scale.
var ErrInvalidSeverity = errors.New("invalid severity")

// Severities lists the scale from least to most severe.
func Severities() []Severity {
	return []Severity{SevInfo, SevLow, SevMed, SevHigh, SevCritical}
}

// Rank orders severities; unknown values rank below info.
func (s Severity) Rank() int {
	switch s {
	case SevInfo:
		return 1
	case SevLow:
		return 2
	case SevMed:
		return 3
	case SevHigh:
		return 4
	case SevCritical:
		return 5
	default:
		return 0
	}
}

// Valid reports whether s is one of the five scale values.
func (s Severity) Valid() bool { return s.Rank() > 0 }

// ParseSeverity accepts the scale values case-insensitively, plus "med".
func ParseSeverity(v string) (Severity, error) {
	s := Severity(strings.ToLower(strings.TrimSpace(v)))
	if s == "med" {
		s = SevMed
	}
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, v)
	}
	return s, nil
}

// Finding is one audit observation produced by a check. Evidence and
// Remediation are pointers so that "absent" serializes as null rather than "".
type Finding struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Evidence    *string  `json:"evidence"`
	Remediation *string  `json:"remediation"`
	References  []string `json:"references"`
}

// Validate checks the invariants every finding must hold.
func (f Finding) Validate() error {
	if f.ID == "" {
		return errors.New("finding has empty id")
	}
	if strings.TrimSpace(f.Title) == "" {
		return fmt.Errorf("finding %q has empty title", f.ID)
	}
	if !f.Severity.Valid() {
		return fmt.Errorf("finding %q: %w: %q", f.ID, ErrInvalidSeverity, f.Severity)
	}
	return nil
}

// EvidenceText returns the evidence or "" when absent.
func (f Finding) EvidenceText() string {
	if f.Evidence == nil {
		return ""
	}
	return *f.Evidence
}

// RemediationText returns the remediation or "" when absent.
func (f Finding) RemediationText() string {
	if f.Remediation == nil {
		return ""
	}
	return *f.Remediation
}

// Str returns a pointer to s, for the optional Finding fields.
func Str(s string) *string { return &s }
