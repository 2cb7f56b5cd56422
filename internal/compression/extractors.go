package compression

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// minEnforcementLength is the shortest enforcement capture, in characters,
// that is not treated as noise.
const minEnforcementLength = 50

// Extractor scans raw module text for one kind of element. Extractors never
// fail; absence of matches yields an empty slice.
type Extractor[T any] interface {
	Extract(text string) []T
}

// ExtractAll runs every extractor over text. CRLF line endings are read as LF.
func ExtractAll(pt *PatternTable, text string) Elements {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return Elements{
		YAMLBlocks:  NewYAMLBlockExtractor(pt).Extract(text),
		Targets:     NewTargetExtractor(pt).Extract(text),
		Enforcement: NewEnforcementExtractor(pt).Extract(text),
		Decisions:   NewDecisionExtractor(pt).Extract(text),
		Code:        NewCodeExtractor(pt).Extract(text),
		MCP:         NewMCPExtractor(pt).Extract(text),
	}
}

// YAMLBlockExtractor finds fenced yaml blocks and their preceding bold label.
type YAMLBlockExtractor struct {
	pt *PatternTable
}

// NewYAMLBlockExtractor creates a YAMLBlockExtractor using pt.
func NewYAMLBlockExtractor(pt *PatternTable) *YAMLBlockExtractor {
	return &YAMLBlockExtractor{pt: pt}
}

// Extract returns configuration blocks in document order.
func (x *YAMLBlockExtractor) Extract(text string) []YAMLBlock {
	matches := x.pt.yamlFence.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}
	blocks := make([]YAMLBlock, 0, len(matches))
	for _, m := range matches {
		content := strings.TrimSuffix(text[m[2]:m[3]], "\n")
		blocks = append(blocks, YAMLBlock{
			Content: content,
			Context: x.contextBefore(text[:m[0]]),
		})
	}
	return blocks
}

// contextBefore returns the bold label ending the text that precedes a block.
func (x *YAMLBlockExtractor) contextBefore(before string) string {
	before = strings.TrimRight(before, " \t\r\n")
	last := before[strings.LastIndexByte(before, '\n')+1:]
	if m := x.pt.contextLabel.FindStringSubmatch(last); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// TargetExtractor unions every compliance-target surface pattern. A number
// captured by several patterns appears once per pattern.
type TargetExtractor struct {
	pt *PatternTable
}

// NewTargetExtractor creates a TargetExtractor using pt.
func NewTargetExtractor(pt *PatternTable) *TargetExtractor {
	return &TargetExtractor{pt: pt}
}

// Extract returns compliance targets ordered by position.
func (x *TargetExtractor) Extract(text string) []ComplianceTarget {
	type located struct {
		target ComplianceTarget
		at     span
	}
	var found []located
	for order, p := range x.pt.targets {
		for _, m := range p.regex.FindAllStringSubmatchIndex(text, -1) {
			phrase := strings.TrimSpace(text[m[0]:m[1]])
			pct := ""
			if p.group > 0 && m[2*p.group] >= 0 {
				pct = text[m[2*p.group]:m[2*p.group+1]]
			} else if pm := x.pt.percent.FindStringSubmatch(phrase); pm != nil {
				pct = pm[1]
			}
			found = append(found, located{
				target: ComplianceTarget{
					Text:       phrase,
					Percentage: pct,
					Category:   ClassifyTarget(lineAt(text, m[0])),
				},
				at: span{start: m[0], end: m[1], order: order},
			})
		}
	}
	if len(found) == 0 {
		return nil
	}
	sortSpans(found, func(l located) span { return l.at })

	targets := make([]ComplianceTarget, len(found))
	for i, l := range found {
		targets[i] = l.target
	}
	return targets
}

// EnforcementExtractor matches the four enforcement shapes: enforcement-bearing
// yaml blocks, MANDATORY/ENFORCEMENT/GUARD/BLOCK labelled sections, PROTOCOL
// sections and ENFORCEMENT bullet lists.
type EnforcementExtractor struct {
	pt *PatternTable
}

// NewEnforcementExtractor creates an EnforcementExtractor using pt.
func NewEnforcementExtractor(pt *PatternTable) *EnforcementExtractor {
	return &EnforcementExtractor{pt: pt}
}

// Extract returns enforcement patterns ordered by position, without exact
// duplicates and without captures shorter than 50 characters.
func (x *EnforcementExtractor) Extract(text string) []EnforcementPattern {
	type located struct {
		text string
		at   span
	}
	var found []located

	for _, m := range x.pt.yamlFence.FindAllStringSubmatchIndex(text, -1) {
		if x.pt.enforcementKeywords.MatchString(text[m[2]:m[3]]) {
			found = append(found, located{text: text[m[0]:m[1]], at: span{start: m[0], end: m[1], order: 0}})
		}
	}
	for _, m := range x.pt.mandatoryLabel.FindAllStringIndex(text, -1) {
		body, end := x.pt.section(text, m[0], false)
		found = append(found, located{text: strings.TrimSpace(body), at: span{start: m[0], end: end, order: 1}})
	}
	for _, m := range x.pt.protocolLabel.FindAllStringIndex(text, -1) {
		body, end := x.pt.section(text, m[0], false)
		found = append(found, located{text: strings.TrimSpace(body), at: span{start: m[0], end: end, order: 2}})
	}
	for _, m := range x.pt.enforcementBullets.FindAllStringIndex(text, -1) {
		found = append(found, located{text: strings.TrimSpace(text[m[0]:m[1]]), at: span{start: m[0], end: m[1], order: 3}})
	}
	if len(found) == 0 {
		return nil
	}
	sortSpans(found, func(l located) span { return l.at })

	seen := make(map[string]struct{}, len(found))
	var patterns []EnforcementPattern
	for _, l := range found {
		if utf8.RuneCountInString(l.text) < minEnforcementLength {
			continue
		}
		if _, dup := seen[l.text]; dup {
			continue
		}
		seen[l.text] = struct{}{}
		patterns = append(patterns, EnforcementPattern{
			Text:     l.text,
			Type:     ClassifyEnforcement(l.text),
			HasYAML:  x.pt.yamlFence.MatchString(l.text),
			Priority: InferRulePriority(l.text),
		})
	}
	return patterns
}

// DecisionExtractor captures numbered, bold-led procedural steps.
type DecisionExtractor struct {
	pt *PatternTable
}

// NewDecisionExtractor creates a DecisionExtractor using pt.
func NewDecisionExtractor(pt *PatternTable) *DecisionExtractor {
	return &DecisionExtractor{pt: pt}
}

// Extract returns decision steps in document order. Each step runs up to the
// next numbered item or section boundary.
func (x *DecisionExtractor) Extract(text string) []DecisionTree {
	matches := x.pt.decisionStart.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}
	decisions := make([]DecisionTree, 0, len(matches))
	for _, m := range matches {
		body, _ := x.pt.section(text, m[0], true)
		body = strings.TrimSpace(body)
		decisions = append(decisions, DecisionTree{Text: body, Type: ClassifyDecision(body)})
	}
	return decisions
}

// CodeExtractor captures every fenced block verbatim, whatever its language.
type CodeExtractor struct {
	pt *PatternTable
}

// NewCodeExtractor creates a CodeExtractor using pt.
func NewCodeExtractor(pt *PatternTable) *CodeExtractor {
	return &CodeExtractor{pt: pt}
}

// Extract returns fenced blocks, fences included, in document order.
func (x *CodeExtractor) Extract(text string) []CodePattern {
	matches := x.pt.codeFence.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}
	code := make([]CodePattern, 0, len(matches))
	for _, m := range matches {
		code = append(code, CodePattern{
			Text:     text[m[0]:m[1]],
			Language: text[m[2]:m[3]],
		})
	}
	return code
}

// MCPExtractor matches the five optimization shapes: optimization-related
// fenced blocks, synergy and chaining phrases, efficiency percentages, fully
// qualified tool identifiers and workflow-template references.
type MCPExtractor struct {
	pt *PatternTable
}

// NewMCPExtractor creates an MCPExtractor using pt.
func NewMCPExtractor(pt *PatternTable) *MCPExtractor {
	return &MCPExtractor{pt: pt}
}

// Extract returns optimization patterns ordered by position.
func (x *MCPExtractor) Extract(text string) []MCPPattern {
	type located struct {
		text string
		at   span
	}
	var found []located
	add := func(order int, matches [][]int) {
		for _, m := range matches {
			found = append(found, located{
				text: strings.TrimSpace(text[m[0]:m[1]]),
				at:   span{start: m[0], end: m[1], order: order},
			})
		}
	}

	for _, m := range x.pt.codeFence.FindAllStringSubmatchIndex(text, -1) {
		if x.pt.optimizationKeywords.MatchString(text[m[4]:m[5]]) {
			add(0, [][]int{m[:2]})
		}
	}
	add(1, x.pt.synergyPhrase.FindAllStringIndex(text, -1))
	add(2, x.pt.efficiencyPhrase.FindAllStringIndex(text, -1))
	add(3, x.pt.toolID.FindAllStringIndex(text, -1))
	add(4, x.pt.workflowTemplate.FindAllStringIndex(text, -1))
	if len(found) == 0 {
		return nil
	}
	sortSpans(found, func(l located) span { return l.at })

	patterns := make([]MCPPattern, 0, len(found))
	for _, l := range found {
		if l.text == "" {
			continue
		}
		patterns = append(patterns, MCPPattern{
			Text:       l.text,
			Type:       ClassifyOptimization(l.text),
			Efficiency: x.efficiency(l.text),
		})
	}
	return patterns
}

// efficiency parses the first allow-listed efficiency percentage in text.
func (x *MCPExtractor) efficiency(text string) int {
	m := x.pt.efficiencyPhrase.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
