package secrets

import (
	"fmt"
	"sort"
	"time"
)

// Result contains the scrubbing result.
type Result struct {
	// Original is the original input content
	Original string `json:"-"`

	// Scrubbed is the content with secrets redacted
	Scrubbed string `json:"scrubbed"`

	// Findings contains the detected secrets without their values
	Findings []Finding `json:"findings,omitempty"`

	Duration time.Duration `json:"duration"`

	// TotalFindings is the count of secrets found
	TotalFindings int `json:"total_findings"`

	// ByRule maps rule IDs to finding counts
	ByRule map[string]int `json:"by_rule,omitempty"`
}

// Finding represents a detected secret. The matched value is never stored.
type Finding struct {
	RuleID      string `json:"rule_id"`
	Description string `json:"description"`
	Severity    string `json:"severity"`

	// StartIndex and EndIndex delimit the redacted value in the original
	// content.
	StartIndex int `json:"start_index"`
	EndIndex   int `json:"end_index"`

	// Line is the line number (1-indexed)
	Line int `json:"line,omitempty"`
}

func newResult(content string) *Result {
	return &Result{
		Original: content,
		Scrubbed: content,
		Findings: make([]Finding, 0),
		ByRule:   make(map[string]int),
	}
}

func (r *Result) add(f Finding) {
	r.Findings = append(r.Findings, f)
	r.ByRule[f.RuleID]++
	r.TotalFindings++
}

// HasFindings returns true if any secrets were found.
func (r *Result) HasFindings() bool {
	return r.TotalFindings > 0
}

// FindingsBySeverity returns findings filtered by severity.
func (r *Result) FindingsBySeverity(severity string) []Finding {
	var filtered []Finding
	for _, f := range r.Findings {
		if f.Severity == severity {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

// RuleIDs returns the sorted unique rule IDs that matched.
func (r *Result) RuleIDs() []string {
	ids := make([]string, 0, len(r.ByRule))
	for id := range r.ByRule {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Summary returns a brief summary of findings, naming the highest severity
// present.
func (r *Result) Summary() string {
	if !r.HasFindings() {
		return "no secrets detected"
	}
	for _, severity := range []string{"high", "medium", "low"} {
		if n := len(r.FindingsBySeverity(severity)); n > 0 {
			return fmt.Sprintf("%d secret(s) redacted (%s severity)", r.TotalFindings, severity)
		}
	}
	return fmt.Sprintf("%d secret(s) redacted", r.TotalFindings)
}
