package secrets

import (
	"sort"
	"strings"
	"time"
)

// Scrubber detects and redacts secrets from content.
type Scrubber interface {
	// Scrub redacts secrets from the content.
	Scrub(content string) *Result

	// ScrubBytes redacts secrets from byte content.
	ScrubBytes(content []byte) *Result

	// Check detects secrets without redacting.
	Check(content string) *Result

	// IsEnabled returns whether scrubbing is enabled.
	IsEnabled() bool
}

// scrubber is the default implementation using regexp patterns. The config
// is compiled once in New and never mutated, so it is safe for concurrent use.
type scrubber struct {
	config *Config
}

// span is a byte range to redact.
type span struct {
	start, end int
}

// New creates a new Scrubber with the given configuration.
// If config is nil, DefaultConfig() is used.
func New(cfg *Config) (Scrubber, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &scrubber{config: cfg}, nil
}

// MustNew creates a new Scrubber, panicking on error.
func MustNew(cfg *Config) Scrubber {
	s, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return s
}

// Scrub redacts secrets from the content.
func (s *scrubber) Scrub(content string) *Result {
	start := time.Now()
	result := newResult(content)
	if !s.config.Enabled {
		result.Duration = time.Since(start)
		return result
	}

	spans := s.scan(content, result)

	if len(spans) > 0 {
		result.Scrubbed = redact(content, mergeSpans(spans), s.config.RedactionString)
	}
	result.Duration = time.Since(start)
	return result
}

// scan records a finding for every rule match in content and returns the
// spans to redact.
func (s *scrubber) scan(content string, result *Result) []span {
	var spans []span
	for _, rule := range s.config.compiledRules {
		if !rule.applies(content) {
			continue
		}
		for _, loc := range rule.pattern.FindAllStringSubmatchIndex(content, -1) {
			sp := valueSpan(loc)
			if s.isAllowed(content[sp.start:sp.end]) {
				continue
			}
			result.add(Finding{
				RuleID:      rule.ID,
				Description: rule.Description,
				Severity:    rule.Severity,
				StartIndex:  sp.start,
				EndIndex:    sp.end,
				Line:        strings.Count(content[:sp.start], "\n") + 1,
			})
			spans = append(spans, sp)
		}
	}

	return spans
}

// ScrubBytes redacts secrets from byte content.
func (s *scrubber) ScrubBytes(content []byte) *Result {
	return s.Scrub(string(content))
}

// Check detects secrets without redacting.
func (s *scrubber) Check(content string) *Result {
	result := s.Scrub(content)
	result.Scrubbed = result.Original
	return result
}

// IsEnabled returns whether scrubbing is enabled.
func (s *scrubber) IsEnabled() bool {
	return s.config.Enabled
}

func (s *scrubber) isAllowed(value string) bool {
	for _, pattern := range s.config.compiledAllowList {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// applies reports whether any keyword of the rule occurs in content. Rules
// without keywords always apply.
func (r *compiledRule) applies(content string) bool {
	if len(r.keywords) == 0 {
		return true
	}
	for _, kw := range r.keywords {
		if kw.MatchString(content) {
			return true
		}
	}
	return false
}

// valueSpan returns the first participating capture group of a submatch
// index, or the whole match when the pattern has no groups.
func valueSpan(loc []int) span {
	for i := 2; i+1 < len(loc); i += 2 {
		if loc[i] >= 0 && loc[i] < loc[i+1] {
			return span{loc[i], loc[i+1]}
		}
	}
	return span{loc[0], loc[1]}
}

// mergeSpans sorts spans and merges overlapping or adjacent ones.
func mergeSpans(spans []span) []span {
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	merged := []span{spans[0]}
	for _, curr := range spans[1:] {
		last := &merged[len(merged)-1]
		if curr.start <= last.end {
			if curr.end > last.end {
				last.end = curr.end
			}
			continue
		}
		merged = append(merged, curr)
	}
	return merged
}

// redact replaces sorted, disjoint spans of content with replacement.
func redact(content string, spans []span, replacement string) string {
	var b strings.Builder
	b.Grow(len(content))
	prev := 0
	for _, sp := range spans {
		b.WriteString(content[prev:sp.start])
		b.WriteString(replacement)
		prev = sp.end
	}
	b.WriteString(content[prev:])
	return b.String()
}

// NoopScrubber is a scrubber that does nothing, used when scrubbing is
// disabled.
type NoopScrubber struct{}

// Scrub returns content unchanged.
func (n *NoopScrubber) Scrub(content string) *Result {
	return newResult(content)
}

// ScrubBytes returns content unchanged.
func (n *NoopScrubber) ScrubBytes(content []byte) *Result {
	return n.Scrub(string(content))
}

// Check returns content unchanged.
func (n *NoopScrubber) Check(content string) *Result {
	return n.Scrub(content)
}

// IsEnabled returns false.
func (n *NoopScrubber) IsEnabled() bool {
	return false
}

var (
	_ Scrubber = (*scrubber)(nil)
	_ Scrubber = (*NoopScrubber)(nil)
)
