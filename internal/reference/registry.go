package reference

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/guild/internal/compression"
)

// Kind distinguishes configuration entries from target entries.
type Kind string

const (
	KindConfig Kind = "config"
	KindTarget Kind = "target"
)

// Entry is one registry definition.
type Entry struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Kind     Kind   `json:"kind"`
	Category string `json:"category"`
}

// InvalidEntry records an entry that was rejected while building a registry.
type InvalidEntry struct {
	ID  string
	Err error
}

func (e InvalidEntry) Error() string {
	return fmt.Sprintf("%s: %v", e.ID, e.Err)
}

// entryPattern matches "### <ID>: <title>" followed, after optional blank
// lines, by a fenced block.
var entryPattern = regexp.MustCompile("(?ms)^###[ \\t]+([A-Za-z]+[0-9]+):[ \\t]*([^\\n]*?)[ \\t]*\\n(?:[ \\t]*\\n)*```([\\w-]*)[ \\t]*\\n(.*?)^```[ \\t]*$")

// Registry maps IDs to configuration and target entries.
type Registry struct {
	entries map[string]Entry
	ids     []string
	invalid []InvalidEntry
}

// NewRegistry builds a registry from entries. Invalid entries are skipped and
// reported by Invalid; the first definition of an ID wins. References inside
// titles and bodies are expanded against the other entries, and entries that
// refer back to themselves are rejected with ErrCyclicReference.
func NewRegistry(entries ...Entry) *Registry {
	r := &Registry{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if err := r.add(e); err != nil {
			r.invalid = append(r.invalid, InvalidEntry{ID: e.ID, Err: err})
		}
	}
	if len(r.ids) > 0 {
		r.expandReferences(compression.NewPatternTable())
	}
	sort.Strings(r.ids)
	return r
}

func (r *Registry) add(e Entry) error {
	e.ID = strings.TrimSpace(e.ID)
	if e.ID == "" {
		return ErrEmptyID
	}
	if _, ok := r.entries[e.ID]; ok {
		return ErrDuplicateID
	}
	e.Body = strings.TrimRight(e.Body, "\n")
	if strings.TrimSpace(e.Body) == "" {
		return ErrEmptyBody
	}
	if e.Kind == "" {
		e.Kind = KindConfig
	}
	if e.Kind == KindConfig {
		var v any
		if err := yaml.Unmarshal([]byte(e.Body), &v); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
		}
	}
	if e.Category == "" {
		e.Category = compression.ClassifyConfigID(e.ID)
	}
	if e.Title == "" {
		e.Title = e.ID
	}
	r.entries[e.ID] = e
	r.ids = append(r.ids, e.ID)
	return nil
}

// Parse builds a registry from a registry markdown document.
func Parse(doc string) *Registry {
	var entries []Entry
	for _, m := range entryPattern.FindAllStringSubmatch(doc, -1) {
		kind := KindTarget
		switch strings.ToLower(m[3]) {
		case "yaml", "yml":
			kind = KindConfig
		}
		entries = append(entries, Entry{
			ID:    m[1],
			Title: m[2],
			Body:  m[4],
			Kind:  kind,
		})
	}
	return NewRegistry(entries...)
}

// Load reads and parses the registry document at path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}
	return Parse(string(data)), nil
}

// Lookup returns the entry for id.
func (r *Registry) Lookup(id string) (Entry, bool) {
	if r == nil {
		return Entry{}, false
	}
	e, ok := r.entries[id]
	return e, ok
}

// Config returns the configuration entry for id.
func (r *Registry) Config(id string) (Entry, bool) {
	e, ok := r.Lookup(id)
	if !ok || e.Kind != KindConfig {
		return Entry{}, false
	}
	return e, true
}

// Target returns the target entry for id.
func (r *Registry) Target(id string) (Entry, bool) {
	e, ok := r.Lookup(id)
	if !ok || e.Kind != KindTarget {
		return Entry{}, false
	}
	return e, true
}

// Len returns the number of valid entries.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.ids)
}

// Entries returns all valid entries sorted by ID.
func (r *Registry) Entries() []Entry {
	if r == nil {
		return nil
	}
	out := make([]Entry, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.entries[id])
	}
	return out
}

// Invalid returns the entries rejected while building the registry, in
// document order.
func (r *Registry) Invalid() []InvalidEntry {
	if r == nil {
		return nil
	}
	return append([]InvalidEntry(nil), r.invalid...)
}

// Index renders the registry as a markdown section grouped by category, for
// embedding in generated documents.
func (r *Registry) Index() string {
	if r.Len() == 0 {
		return ""
	}

	var categories []string
	byCategory := make(map[string][]Entry)
	for _, e := range r.Entries() {
		if _, ok := byCategory[e.Category]; !ok {
			categories = append(categories, e.Category)
		}
		byCategory[e.Category] = append(byCategory[e.Category], e)
	}
	sort.Strings(categories)

	var b strings.Builder
	b.WriteString("## Shared Intelligence")
	for _, category := range categories {
		fmt.Fprintf(&b, "\n\n### %s", category)
		for _, e := range byCategory[category] {
			switch e.Kind {
			case KindConfig:
				fmt.Fprintf(&b, "\n\n**%s (%s):**\n```yaml\n%s\n```", e.Title, e.ID, e.Body)
			default:
				fmt.Fprintf(&b, "\n\n- **%s (%s):** %s", e.Title, e.ID, strings.TrimSpace(e.Body))
			}
		}
	}
	return b.String()
}
