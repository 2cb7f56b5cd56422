package compression

import (
	"regexp"
	"sort"
	"strings"
)

// PatternTable holds the compiled surface patterns used by the extractors.
// A table is immutable after NewPatternTable returns and is safe to share
// between goroutines.
type PatternTable struct {
	// Fences
	yamlFence *regexp.Regexp
	codeFence *regexp.Regexp

	// Label immediately preceding a configuration block
	contextLabel *regexp.Regexp

	// Compliance targets, evaluated independently and unioned
	targets []targetPattern
	percent *regexp.Regexp

	// Enforcement
	enforcementKeywords *regexp.Regexp
	mandatoryLabel      *regexp.Regexp
	protocolLabel       *regexp.Regexp
	enforcementBullets  *regexp.Regexp

	// Decision procedures
	decisionStart *regexp.Regexp

	// Section boundaries
	heading      *regexp.Regexp
	rule         *regexp.Regexp
	numberedItem *regexp.Regexp

	// MCP optimization
	optimizationKeywords *regexp.Regexp
	synergyPhrase        *regexp.Regexp
	efficiencyPhrase     *regexp.Regexp
	toolID               *regexp.Regexp
	workflowTemplate     *regexp.Regexp

	// Shared configuration references
	configRef *regexp.Regexp
	targetRef *regexp.Regexp
}

// targetPattern is one compliance-target surface shape. group is the
// submatch holding the numeric percentage, or 0 when the percentage has to
// be searched for in the matched phrase.
type targetPattern struct {
	regex *regexp.Regexp
	group int
}

// PatternOption customizes a PatternTable.
type PatternOption func(*PatternTable)

// WithReferencePatterns replaces the shared configuration reference syntax.
// Each pattern must capture the referenced ID in its first submatch. A nil
// pattern keeps the default.
func WithReferencePatterns(configRef, targetRef *regexp.Regexp) PatternOption {
	return func(pt *PatternTable) {
		if configRef != nil {
			pt.configRef = configRef
		}
		if targetRef != nil {
			pt.targetRef = targetRef
		}
	}
}

// NewPatternTable compiles the default pattern table and applies opts.
func NewPatternTable(opts ...PatternOption) *PatternTable {
	pt := &PatternTable{
		yamlFence:    regexp.MustCompile("(?ms)^```ya?ml[ \\t]*\\n(.*?)^```[ \\t]*$"),
		codeFence:    regexp.MustCompile("(?ms)^```([\\w+#.-]*)[ \\t]*\\n(.*?)^```[ \\t]*$"),
		contextLabel: regexp.MustCompile(`\*\*([^*\n]+)\*\*$`),

		targets: []targetPattern{
			// "95% compliance", "90% success rate"
			{regex: regexp.MustCompile(`(?i)\b(\d{1,3}(?:\.\d+)?)%[ \t]+(?:compliance|target|success rate|adherence|coverage|accuracy|enforcement|utilization)\b`), group: 1},
			// "target of 95%", "Target: >=90%"
			{regex: regexp.MustCompile(`(?i)\btarget(?:[ \t]+of)?[ \t]*:?[ \t]*(?:>=|≥|>)?[ \t]*(\d{1,3}(?:\.\d+)?)%`), group: 1},
			// "ACHIEVED: 94% parallel execution"
			{regex: regexp.MustCompile(`ACHIEVED:[ \t]*[^\n]+`), group: 0},
			// "compliance_target: 95", "success_rate: 0.9"
			{regex: regexp.MustCompile(`(?i)\b[a-z][a-z0-9_]*_(?:target|rate|threshold|compliance|percentage|minimum)[ \t]*:[ \t]*["']?(\d{1,3}(?:\.\d+)?)%?`), group: 1},
			// "threshold: 85%"
			{regex: regexp.MustCompile(`(?im)^[ \t]*(?:[-*][ \t]+)?threshold[ \t]*:[ \t]*[^\n]+`), group: 0},
		},
		percent: regexp.MustCompile(`(\d{1,3}(?:\.\d+)?)%`),

		enforcementKeywords: regexp.MustCompile(`(?i)\b(?:enforce\w*|mandatory|required|guard\w*|block\w*|protocol|firewall)\b`),
		mandatoryLabel:      regexp.MustCompile(`(?m)^[ \t]*(?:[-*][ \t]+)?\*\*[^*\n]*\b(?:MANDATORY|ENFORCEMENT|GUARD|BLOCK)\b[^*\n]*\*\*`),
		protocolLabel:       regexp.MustCompile(`(?m)^[ \t]*(?:#{1,6}[ \t]+|\*\*)[^\n]*\bPROTOCOL\b[^\n]*$`),
		enforcementBullets:  regexp.MustCompile(`(?m)^[^\n]*\bENFORCEMENT\b[^\n]*:[ \t*]*\n(?:[ \t]*[-*][ \t][^\n]*(?:\n|$))+`),

		decisionStart: regexp.MustCompile(`(?m)^[ \t]*\d+\.[ \t]+\*\*[^*\n]+\*\*`),

		heading:      regexp.MustCompile(`^#{1,6}[ \t]`),
		rule:         regexp.MustCompile(`^[ \t]*(?:---+|\*\*\*+)[ \t]*$`),
		numberedItem: regexp.MustCompile(`^[ \t]*\d+\.[ \t]`),

		optimizationKeywords: regexp.MustCompile(`(?i)batch|parallel|optimi[sz]|mcp__|efficien`),
		synergyPhrase:        regexp.MustCompile(`(?i)[^\n.]*\b(?:synerg(?:y|ies)|tool[ \t-]chain\w*|chain(?:ed|ing)?[ \t]+(?:tools?|calls?|operations?))\b[^\n.]*`),
		efficiencyPhrase:     regexp.MustCompile(`(?i)\b(75|80|85|90|95)%[ \t]+(?:[\w-]+[ \t]+)?(?:efficiency|improvement|reduction|faster|savings|fewer)\b`),
		toolID:               regexp.MustCompile(`\bmcp__[A-Za-z0-9-]+__[A-Za-z0-9_-]+`),
		workflowTemplate:     regexp.MustCompile("(?i)\\bworkflow[ _-]templates?[ \\t]*:?[ \\t]+[`\"']?[\\w./-]+[`\"']?"),

		configRef: regexp.MustCompile(`@config:([A-Za-z]+[0-9]+)`),
		targetRef: regexp.MustCompile(`@target:([A-Za-z]+[0-9]+)`),
	}
	for _, opt := range opts {
		opt(pt)
	}
	return pt
}

// ConfigRefPattern returns the pattern matching "@config:ID" references.
// The first submatch is the ID.
func (pt *PatternTable) ConfigRefPattern() *regexp.Regexp {
	return pt.configRef
}

// TargetRefPattern returns the pattern matching "@target:ID" references.
// The first submatch is the ID.
func (pt *PatternTable) TargetRefPattern() *regexp.Regexp {
	return pt.targetRef
}

// span is a match located in the source text.
type span struct {
	start, end int
	order      int
}

// sortSpans orders spans by position, then by the order of the pattern that
// produced them.
func sortSpans[T any](items []T, spanOf func(T) span) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := spanOf(items[i]), spanOf(items[j])
		if a.start != b.start {
			return a.start < b.start
		}
		return a.order < b.order
	})
}

// lineAt returns the full line of text containing offset.
func lineAt(text string, offset int) string {
	start := strings.LastIndexByte(text[:offset], '\n') + 1
	end := strings.IndexByte(text[offset:], '\n')
	if end < 0 {
		return text[start:]
	}
	return text[start : offset+end]
}

// sectionEnd returns the offset at which the section starting on the line at
// start ends. A section ends before a heading, a horizontal rule or the
// second of two consecutive blank lines, and, when stopAtNumbered is set,
// before the next numbered list item. Boundaries inside fenced blocks are
// ignored.
func (pt *PatternTable) sectionEnd(text string, start int, stopAtNumbered bool) int {
	pos := start
	if nl := strings.IndexByte(text[pos:], '\n'); nl >= 0 {
		pos += nl + 1
	} else {
		return len(text)
	}

	inFence := false
	blankRun := 0
	blankStart := -1
	for pos < len(text) {
		lineEnd := strings.IndexByte(text[pos:], '\n')
		next := len(text)
		line := text[pos:]
		if lineEnd >= 0 {
			line = text[pos : pos+lineEnd]
			next = pos + lineEnd + 1
		}

		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			blankRun = 0
			pos = next
			continue
		}
		if inFence {
			pos = next
			continue
		}

		if trimmed == "" {
			if blankRun == 0 {
				blankStart = pos
			}
			blankRun++
			if blankRun == 2 {
				return blankStart
			}
			pos = next
			continue
		}
		blankRun = 0

		if pt.heading.MatchString(line) || pt.rule.MatchString(line) {
			return pos
		}
		if stopAtNumbered && pt.numberedItem.MatchString(line) {
			return pos
		}
		pos = next
	}
	return len(text)
}

// section returns the trimmed text of the section starting at start.
func (pt *PatternTable) section(text string, start int, stopAtNumbered bool) (string, int) {
	end := pt.sectionEnd(text, start, stopAtNumbered)
	return strings.TrimRight(text[start:end], " \t\r\n"), end
}
