package secrets

import (
	"fmt"
	"strings"
	"time"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// Engines selectable by configuration.
const (
	EngineBuiltin  = "builtin"
	EngineGitleaks = "gitleaks"
)

// gitleaksScrubber runs the built-in rules and then the Gitleaks default rule
// set over what they left behind.
type gitleaksScrubber struct {
	builtin *scrubber
}

// NewGitleaks creates a Scrubber that adds the Gitleaks default rules to the
// configured ones. The allow list applies to both.
func NewGitleaks(cfg *Config) (Scrubber, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	// Fail at construction rather than on first use.
	if _, err := detect.NewDetectorDefaultConfig(); err != nil {
		return nil, fmt.Errorf("loading gitleaks rules: %w", err)
	}
	return &gitleaksScrubber{builtin: &scrubber{config: cfg}}, nil
}

// NewEngine creates the scrubber for the named engine. An empty name selects
// the built-in rules.
func NewEngine(engine string, cfg *Config) (Scrubber, error) {
	switch engine {
	case "", EngineBuiltin:
		return New(cfg)
	case EngineGitleaks:
		return NewGitleaks(cfg)
	default:
		return nil, fmt.Errorf("unknown secrets engine %q", engine)
	}
}

// Scrub redacts secrets from the content.
func (g *gitleaksScrubber) Scrub(content string) *Result {
	start := time.Now()
	result := newResult(content)
	if !g.builtin.config.Enabled {
		result.Duration = time.Since(start)
		return result
	}

	spans := g.builtin.scan(content, result)

	// A detector accumulates findings, so each scan gets its own.
	detector, err := detect.NewDetectorDefaultConfig()
	if err == nil {
		for _, f := range detector.DetectString(content) {
			if f.Secret == "" || g.builtin.isAllowed(f.Secret) {
				continue
			}
			for _, sp := range occurrences(content, f.Secret) {
				if covered(spans, sp) {
					continue
				}
				result.add(Finding{
					RuleID:      f.RuleID,
					Description: f.Description,
					Severity:    "high",
					StartIndex:  sp.start,
					EndIndex:    sp.end,
					Line:        strings.Count(content[:sp.start], "\n") + 1,
				})
				spans = append(spans, sp)
			}
		}
	}

	if len(spans) > 0 {
		result.Scrubbed = redact(content, mergeSpans(spans), g.builtin.config.RedactionString)
	}
	result.Duration = time.Since(start)
	return result
}

// ScrubBytes redacts secrets from byte content.
func (g *gitleaksScrubber) ScrubBytes(content []byte) *Result {
	return g.Scrub(string(content))
}

// Check detects secrets without redacting.
func (g *gitleaksScrubber) Check(content string) *Result {
	result := g.Scrub(content)
	result.Scrubbed = result.Original
	return result
}

// IsEnabled returns whether scrubbing is enabled.
func (g *gitleaksScrubber) IsEnabled() bool {
	return g.builtin.config.Enabled
}

// occurrences returns the spans of every non-overlapping occurrence of value.
func occurrences(content, value string) []span {
	var spans []span
	for offset := 0; ; {
		i := strings.Index(content[offset:], value)
		if i < 0 {
			return spans
		}
		start := offset + i
		spans = append(spans, span{start, start + len(value)})
		offset = start + len(value)
	}
}

// covered reports whether sp lies inside one of spans.
func covered(spans []span, sp span) bool {
	for _, s := range spans {
		if s.start <= sp.start && sp.end <= s.end {
			return true
		}
	}
	return false
}

var _ Scrubber = (*gitleaksScrubber)(nil)
