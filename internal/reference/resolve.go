package reference

import (
	"regexp"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/guild/internal/compression"
)

// Resolver substitutes registry references in text.
type Resolver struct {
	configRef *regexp.Regexp
	targetRef *regexp.Regexp
}

// NewResolver returns a resolver using the reference patterns of pt. A nil
// table builds a fresh one.
func NewResolver(pt *compression.PatternTable) *Resolver {
	if pt == nil {
		pt = compression.NewPatternTable()
	}
	return &Resolver{
		configRef: pt.ConfigRefPattern(),
		targetRef: pt.TargetRefPattern(),
	}
}

// Resolve replaces every known configuration reference with the entry's bold
// title line and fenced YAML body, and every known target reference with
// "title: value". Unknown references are left untouched.
//
// A rendered configuration always occupies whole lines, so text around an
// inline reference is moved to the lines before and after the block.
// Registry bodies are expanded when the registry is built, so resolving
// resolved text changes nothing.
func (r *Resolver) Resolve(text string, reg *Registry) string {
	if reg.Len() == 0 {
		return text
	}

	text = replaceRefs(text, r.configRef, func(start, end int, id string) (string, bool) {
		e, ok := reg.Config(id)
		if !ok {
			return "", false
		}
		block := RenderConfig(e)
		if start > 0 && text[start-1] != '\n' {
			block = "\n" + block
		}
		if end < len(text) && text[end] != '\n' {
			block += "\n"
		}
		return block, true
	})

	return replaceRefs(text, r.targetRef, func(_, _ int, id string) (string, bool) {
		e, ok := reg.Target(id)
		if !ok {
			return "", false
		}
		return RenderTarget(e), true
	})
}

// Unresolved lists the references remaining in text, in order of first
// appearance and without duplicates.
func (r *Resolver) Unresolved(text string) []string {
	type ref struct {
		at   int
		text string
	}
	var refs []ref
	for _, re := range []*regexp.Regexp{r.configRef, r.targetRef} {
		for _, m := range re.FindAllStringIndex(text, -1) {
			refs = append(refs, ref{at: m[0], text: text[m[0]:m[1]]})
		}
	}
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].at < refs[j].at })

	var out []string
	seen := make(map[string]bool, len(refs))
	for _, rf := range refs {
		if !seen[rf.text] {
			seen[rf.text] = true
			out = append(out, rf.text)
		}
	}
	return out
}

// RenderConfig renders a configuration entry as it appears in resolved text.
func RenderConfig(e Entry) string {
	return "**" + e.Title + ":**\n```yaml\n" + e.Body + "\n```"
}

// RenderTarget renders a target entry as it appears in resolved text.
func RenderTarget(e Entry) string {
	return e.Title + ": " + strings.TrimSpace(e.Body)
}

// replaceRefs rewrites every match of re in text with the result of repl,
// which receives the match bounds and the referenced ID. Matches for which
// repl returns false are kept. All bounds refer to the original text.
func replaceRefs(text string, re *regexp.Regexp, repl func(start, end int, id string) (string, bool)) string {
	matches := re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		out, ok := repl(m[0], m[1], refID(text, m))
		if !ok {
			continue
		}
		b.WriteString(text[last:m[0]])
		b.WriteString(out)
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

// refID returns the first submatch of a reference match, or the whole match
// for patterns without a group.
func refID(text string, m []int) string {
	if len(m) >= 4 && m[2] >= 0 {
		return text[m[2]:m[3]]
	}
	return text[m[0]:m[1]]
}
