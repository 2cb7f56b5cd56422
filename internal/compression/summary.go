package compression

import (
	"fmt"
	"sort"
	"strings"
)

// Per-level limits.
const (
	deploymentMaxBlocks      = 2
	deploymentMaxTargets     = 4
	deploymentMaxYAMLLines   = 15
	enforcementTruncateChars = 600
)

// Summarize renders the elements at the given level. An unknown level is
// rendered as LevelStandard. When elements is empty every level returns "".
func Summarize(elements Elements, level Level) string {
	if elements.Empty() {
		return ""
	}
	switch level {
	case LevelDeployment:
		return buildDeployment(elements)
	case LevelMinimal:
		return buildMinimal(elements)
	default:
		// LevelComprehensive currently renders exactly like LevelStandard.
		return buildStandard(elements)
	}
}

// sections joins non-empty rendered sections with a blank line.
type sections []string

func (s *sections) add(section string) {
	if section = strings.TrimSpace(section); section != "" {
		*s = append(*s, section)
	}
}

func (s sections) String() string {
	return strings.Join(s, "\n\n")
}

func fenceYAML(content string) string {
	return "```yaml\n" + content + "\n```"
}

func boldLabel(label string) string {
	return "**" + label + "**"
}

// buildDeployment keeps the two longest configuration blocks in compacted
// form, up to four unique category percentages and at most one high-priority
// enforcement pattern that carries its own configuration block.
func buildDeployment(e Elements) string {
	var out sections

	var blocks strings.Builder
	lastContext := ""
	for _, b := range longestBlocks(e.YAMLBlocks, deploymentMaxBlocks) {
		if b.HasContext() && b.Context != lastContext {
			blocks.WriteString(boldLabel(b.Context) + "\n")
			lastContext = b.Context
		}
		blocks.WriteString(fenceYAML(compactYAML(b.Content, deploymentMaxYAMLLines)) + "\n")
	}
	out.add(blocks.String())

	var tokens []string
	seen := make(map[string]struct{})
	for _, t := range e.Targets {
		if t.Percentage == "" {
			continue
		}
		token := fmt.Sprintf("%s:%s%%", strings.ToUpper(string(t.Category)), t.Percentage)
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		tokens = append(tokens, token)
		if len(tokens) == deploymentMaxTargets {
			break
		}
	}
	if len(tokens) > 0 {
		out.add("**Targets:** " + strings.Join(tokens, " | "))
	}

	for _, p := range e.Enforcement {
		if p.Priority == RulePriorityHigh && p.HasYAML {
			out.add("**Enforcement:**\n" + p.Text)
			break
		}
	}

	return out.String()
}

// longestBlocks returns the n longest blocks in document order. Ties keep
// the earlier block.
func longestBlocks(blocks []YAMLBlock, n int) []YAMLBlock {
	if len(blocks) <= n {
		return blocks
	}
	idx := make([]int, len(blocks))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return len(blocks[idx[a]].Content) > len(blocks[idx[b]].Content)
	})
	keep := idx[:n]
	sort.Ints(keep)

	out := make([]YAMLBlock, 0, n)
	for _, i := range keep {
		out = append(out, blocks[i])
	}
	return out
}

// contextGroup is a run of configuration blocks sharing one label.
type contextGroup struct {
	context string
	blocks  []YAMLBlock
}

// groupByContext groups blocks by label in order of first appearance.
func groupByContext(blocks []YAMLBlock) []contextGroup {
	var groups []contextGroup
	index := make(map[string]int)
	for _, b := range blocks {
		i, ok := index[b.Context]
		if !ok {
			i = len(groups)
			index[b.Context] = i
			groups = append(groups, contextGroup{context: b.Context})
		}
		groups[i].blocks = append(groups[i].blocks, b)
	}
	return groups
}

type categoryPercentages struct {
	category    TargetCategory
	percentages []string
}

// categoryRollup lists the unique percentages of each target category in
// order of first appearance. Categories without percentages are skipped.
func categoryRollup(targets []ComplianceTarget) []categoryPercentages {
	var rollup []categoryPercentages
	index := make(map[TargetCategory]int)
	seen := make(map[string]struct{})
	for _, t := range targets {
		if t.Percentage == "" {
			continue
		}
		i, ok := index[t.Category]
		if !ok {
			i = len(rollup)
			index[t.Category] = i
			rollup = append(rollup, categoryPercentages{category: t.Category})
		}
		key := string(t.Category) + "\x00" + t.Percentage
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		rollup[i].percentages = append(rollup[i].percentages, t.Percentage+"%")
	}
	return rollup
}

// buildMinimal keeps the first configuration block of every label group and
// the per-category target percentages.
func buildMinimal(e Elements) string {
	var out sections

	for _, g := range groupByContext(e.YAMLBlocks) {
		var b strings.Builder
		if g.context != "" {
			b.WriteString(boldLabel(g.context) + "\n")
		}
		b.WriteString(fenceYAML(g.blocks[0].Content))
		if more := len(g.blocks) - 1; more > 0 {
			fmt.Fprintf(&b, "\n_(+%d more)_", more)
		}
		out.add(b.String())
	}

	if rollup := categoryRollup(e.Targets); len(rollup) > 0 {
		parts := make([]string, 0, len(rollup))
		for _, r := range rollup {
			parts = append(parts, fmt.Sprintf("%s: %s", r.category, strings.Join(r.percentages, ", ")))
		}
		out.add("**Compliance:** " + strings.Join(parts, " | "))
	}

	return out.String()
}

// buildStandard renders every element kind. Configuration blocks, decision
// steps and code are kept verbatim; enforcement text without its own
// configuration block is smart-truncated.
func buildStandard(e Elements) string {
	var out sections

	if len(e.YAMLBlocks) > 0 {
		var b strings.Builder
		b.WriteString("### Configuration\n")
		for _, g := range groupByContext(e.YAMLBlocks) {
			b.WriteString("\n")
			if g.context != "" {
				b.WriteString(boldLabel(g.context) + "\n")
			}
			for _, block := range g.blocks {
				b.WriteString(fenceYAML(block.Content) + "\n")
			}
		}
		out.add(b.String())
	}

	if len(e.Enforcement) > 0 {
		rendered := make([]string, 0, len(e.Enforcement))
		for _, p := range e.Enforcement {
			if p.HasYAML {
				rendered = append(rendered, p.Text)
			} else {
				rendered = append(rendered, smartTruncate(p.Text, enforcementTruncateChars))
			}
		}
		out.add("### Enforcement\n\n" + strings.Join(rendered, "\n\n"))
	}

	if len(e.Targets) > 0 {
		var b strings.Builder
		b.WriteString("### Compliance Targets\n")
		if rollup := categoryRollup(e.Targets); len(rollup) > 0 {
			b.WriteString("\n")
			for _, r := range rollup {
				fmt.Fprintf(&b, "- **%s**: %s\n", r.category, strings.Join(r.percentages, ", "))
			}
		}
		b.WriteString("\n")
		for _, phrase := range uniqueTargetText(e.Targets) {
			b.WriteString("- " + phrase + "\n")
		}
		out.add(b.String())
	}

	if len(e.Decisions) > 0 {
		steps := make([]string, 0, len(e.Decisions))
		for _, d := range e.Decisions {
			steps = append(steps, d.Text)
		}
		out.add("### Decision Procedures\n\n" + strings.Join(steps, "\n"))
	}

	if len(e.Code) > 0 {
		code := make([]string, 0, len(e.Code))
		for _, c := range e.Code {
			code = append(code, c.Text)
		}
		out.add("### Code Patterns\n\n" + strings.Join(code, "\n\n"))
	}

	return out.String()
}

// uniqueTargetText returns target phrases without duplicates, in order.
func uniqueTargetText(targets []ComplianceTarget) []string {
	seen := make(map[string]struct{}, len(targets))
	var out []string
	for _, t := range targets {
		if _, dup := seen[t.Text]; dup {
			continue
		}
		seen[t.Text] = struct{}{}
		out = append(out, t.Text)
	}
	return out
}
