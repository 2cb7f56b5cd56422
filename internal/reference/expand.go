package reference

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/guild/internal/compression"
)

const (
	unvisited = iota
	visiting
	expanded
)

// expander rewrites the references inside registry titles and bodies so that
// resolved text never contains a reference the registry could still resolve.
//
// A reference standing alone on a line is replaced by the referenced body,
// indented like the reference. An inline configuration reference becomes
// "Title (ID)" and an inline target reference its value. Entries that reach
// themselves through references are rejected.
type expander struct {
	reg       *Registry
	configRef *regexp.Regexp
	targetRef *regexp.Regexp

	state  map[string]int
	stack  []string
	cyclic map[string]bool
	failed map[string]error
}

func (r *Registry) expandReferences(pt *compression.PatternTable) {
	x := &expander{
		reg:       r,
		configRef: pt.ConfigRefPattern(),
		targetRef: pt.TargetRefPattern(),
		state:     make(map[string]int, len(r.ids)),
		cyclic:    make(map[string]bool),
		failed:    make(map[string]error),
	}
	for _, id := range r.ids {
		x.visit(id)
	}

	kept := r.ids[:0]
	for _, id := range r.ids {
		err := x.failed[id]
		if x.cyclic[id] {
			err = ErrCyclicReference
		}
		if err != nil {
			delete(r.entries, id)
			r.invalid = append(r.invalid, InvalidEntry{ID: id, Err: err})
			continue
		}
		kept = append(kept, id)
	}
	r.ids = kept
}

// visit expands the entry id once and reports whether other entries may
// embed it.
func (x *expander) visit(id string) bool {
	switch x.state[id] {
	case visiting:
		for i := len(x.stack) - 1; i >= 0; i-- {
			x.cyclic[x.stack[i]] = true
			if x.stack[i] == id {
				break
			}
		}
		return false
	case expanded:
		return !x.cyclic[id] && x.failed[id] == nil
	}

	x.state[id] = visiting
	x.stack = append(x.stack, id)
	e := x.reg.entries[id]
	title := x.inline(e.Title)
	body := x.block(e.Body)
	x.stack = x.stack[:len(x.stack)-1]
	x.state[id] = expanded

	if x.cyclic[id] {
		return false
	}
	if body != e.Body && e.Kind == KindConfig {
		var v any
		if err := yaml.Unmarshal([]byte(body), &v); err != nil {
			x.failed[id] = fmt.Errorf("%w after expanding references: %v", ErrInvalidYAML, err)
			return false
		}
	}
	e.Title, e.Body = title, body
	x.reg.entries[id] = e
	return true
}

func (x *expander) lookup(id string, kind Kind) (Entry, bool) {
	e, ok := x.reg.entries[id]
	if !ok || e.Kind != kind || !x.visit(id) {
		return Entry{}, false
	}
	return x.reg.entries[id], true
}

func (x *expander) block(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = x.line(line)
	}
	return strings.Join(lines, "\n")
}

func (x *expander) line(line string) string {
	trimmed := strings.TrimSpace(line)
	indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]

	for _, ref := range []struct {
		re   *regexp.Regexp
		kind Kind
	}{{x.configRef, KindConfig}, {x.targetRef, KindTarget}} {
		m := ref.re.FindStringSubmatchIndex(trimmed)
		if m == nil || m[0] != 0 || m[1] != len(trimmed) {
			continue
		}
		e, ok := x.lookup(refID(trimmed, m), ref.kind)
		if !ok {
			return line
		}
		body := strings.Split(strings.TrimSpace(e.Body), "\n")
		for i := range body {
			body[i] = indent + body[i]
		}
		return strings.Join(body, "\n")
	}
	return x.inline(line)
}

func (x *expander) inline(text string) string {
	text = replaceRefs(text, x.configRef, func(_, _ int, id string) (string, bool) {
		e, ok := x.lookup(id, KindConfig)
		if !ok {
			return "", false
		}
		return e.Title + " (" + e.ID + ")", true
	})
	return replaceRefs(text, x.targetRef, func(_, _ int, id string) (string, bool) {
		e, ok := x.lookup(id, KindTarget)
		if !ok {
			return "", false
		}
		if v := strings.TrimSpace(e.Body); !strings.Contains(v, "\n") {
			return v, true
		}
		return e.Title + " (" + e.ID + ")", true
	})
}
