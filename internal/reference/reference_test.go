package reference

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/guild/internal/compression"
)

const registryDoc = "# Shared Intelligence\n\n" +
	"### AG001: Agent Mandate\n" +
	"```yaml\n" +
	"key: value\n" +
	"```\n\n" +
	"### PE002: Parallel Execution\n\n" +
	"```yml\n" +
	"parallel:\n" +
	"  max_agents: 4\n" +
	"```\n\n" +
	"### TB001: Token Budget\n" +
	"```text\n" +
	"4000 tokens per command\n" +
	"```\n\n" +
	"### VF001: Broken\n" +
	"```yaml\n" +
	"key: [unclosed\n" +
	"```\n\n" +
	"### AG001: Agent Mandate Again\n" +
	"```yaml\n" +
	"other: value\n" +
	"```\n"

func TestParse(t *testing.T) {
	reg := Parse(registryDoc)

	require.Equal(t, 3, reg.Len())

	ag, ok := reg.Config("AG001")
	require.True(t, ok)
	assert.Equal(t, "Agent Mandate", ag.Title)
	assert.Equal(t, "key: value", ag.Body)
	assert.Equal(t, "agent-mandatory", ag.Category)

	pe, ok := reg.Config("PE002")
	require.True(t, ok)
	assert.Equal(t, "parallel:\n  max_agents: 4", pe.Body)

	tb, ok := reg.Target("TB001")
	require.True(t, ok)
	assert.Equal(t, KindTarget, tb.Kind)
	_, ok = reg.Config("TB001")
	assert.False(t, ok)

	invalid := reg.Invalid()
	require.Len(t, invalid, 2)
	assert.Equal(t, "VF001", invalid[0].ID)
	assert.True(t, errors.Is(invalid[0].Err, ErrInvalidYAML))
	assert.Equal(t, "AG001", invalid[1].ID)
	assert.ErrorIs(t, invalid[1].Err, ErrDuplicateID)

	var ids []string
	for _, e := range reg.Entries() {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"AG001", "PE002", "TB001"}, ids)
}

func TestParse_IgnoresHeadingsWithoutFence(t *testing.T) {
	reg := Parse("### AG001: Lonely heading\n\nJust prose.\n\n## Section\n")
	assert.Equal(t, 0, reg.Len())
	assert.Empty(t, reg.Invalid())
}

func TestNewRegistry_Rejects(t *testing.T) {
	reg := NewRegistry(
		Entry{ID: "", Body: "a: 1"},
		Entry{ID: "AG001", Body: "  \n"},
		Entry{ID: "CM001", Body: "a: 1"},
	)
	require.Equal(t, 1, reg.Len())

	e, ok := reg.Config("CM001")
	require.True(t, ok)
	assert.Equal(t, "CM001", e.Title)
	assert.Equal(t, "context-management", e.Category)

	invalid := reg.Invalid()
	require.Len(t, invalid, 2)
	assert.ErrorIs(t, invalid[0].Err, ErrEmptyID)
	assert.ErrorIs(t, invalid[1].Err, ErrEmptyBody)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared-intelligence.md")
	require.NoError(t, os.WriteFile(path, []byte(registryDoc), 0o600))

	reg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.md"))
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	resolver := NewResolver(nil)
	reg := NewRegistry(
		Entry{ID: "AG001", Title: "Agent Mandate", Body: "key: value"},
		Entry{ID: "TB001", Title: "Token Budget", Body: "4000 tokens", Kind: KindTarget},
	)

	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "config reference",
			text: "See @config:AG001 for details",
			want: "See \n**Agent Mandate:**\n```yaml\nkey: value\n```\n for details",
		},
		{
			name: "config reference on its own line",
			text: "Rules:\n@config:AG001\nDone.",
			want: "Rules:\n**Agent Mandate:**\n```yaml\nkey: value\n```\nDone.",
		},
		{
			name: "unknown reference is left literal",
			text: "See @config:ZZ999",
			want: "See @config:ZZ999",
		},
		{
			name: "target reference",
			text: "Budget is @target:TB001.",
			want: "Budget is Token Budget: 4000 tokens.",
		},
		{
			name: "kind mismatch is left literal",
			text: "@target:AG001 and @config:TB001",
			want: "@target:AG001 and @config:TB001",
		},
		{
			name: "repeated references",
			text: "@target:TB001 @target:TB001",
			want: "Token Budget: 4000 tokens Token Budget: 4000 tokens",
		},
		{
			name: "no references",
			text: "plain text",
			want: "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolver.Resolve(tt.text, reg)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, resolver.Resolve(got, reg), "resolving twice must match resolving once")
		})
	}
}

func TestResolve_InlineConfigKeepsBlocksIntact(t *testing.T) {
	reg := NewRegistry(Entry{ID: "AG001", Title: "Agent Mandate", Body: "key: value"})
	text := "See @config:AG001 for details.\n\n**Other:**\n```yaml\na: 1\n```"

	resolved := NewResolver(nil).Resolve(text, reg)

	blocks := compression.ExtractAll(compression.NewPatternTable(), resolved).YAMLBlocks
	require.Len(t, blocks, 2)
	assert.Equal(t, "key: value", blocks[0].Content)
	assert.Equal(t, "Agent Mandate:", blocks[0].Context)
	assert.Equal(t, "a: 1", blocks[1].Content)
	assert.Equal(t, "Other:", blocks[1].Context)
	assert.Contains(t, resolved, "\n for details.")
}

func TestResolve_CustomPatterns(t *testing.T) {
	pt := compression.NewPatternTable(compression.WithReferencePatterns(
		regexp.MustCompile(`\[\[config:(\w+)\]\]`),
		regexp.MustCompile(`\[\[target:(\w+)\]\]`),
	))
	resolver := NewResolver(pt)
	reg := NewRegistry(
		Entry{ID: "AG001", Title: "Agent Mandate", Body: "key: value"},
		Entry{ID: "TB001", Title: "Token Budget", Body: "4000 tokens", Kind: KindTarget},
	)

	got := resolver.Resolve("[[config:AG001]]\nBudget: [[target:TB001]]. Keep @config:AG001 and [[config:ZZ9]].", reg)
	assert.Equal(t, "**Agent Mandate:**\n```yaml\nkey: value\n```\nBudget: Token Budget: 4000 tokens. Keep @config:AG001 and [[config:ZZ9]].", got)
	assert.Equal(t, []string{"[[config:ZZ9]]"}, resolver.Unresolved(got))
	assert.Equal(t, []string{"@config:AG001"}, NewResolver(nil).Unresolved(got))
}

func TestNewRegistry_ExpandsNestedReferences(t *testing.T) {
	reg := NewRegistry(
		Entry{ID: "AG001", Title: "Agent Mandate", Body: `see: "@config:PE001"`},
		Entry{ID: "PE001", Title: "Parallel", Body: "max: 4"},
		Entry{ID: "AG002", Title: "Budgeted", Body: `budget: "@target:TB001"`},
		Entry{ID: "TB001", Title: "Token Budget", Body: "4000 tokens", Kind: KindTarget},
		Entry{ID: "TB002", Title: "Combined", Body: "Tokens:\n  @target:TB001\nSee @config:AG001", Kind: KindTarget},
		Entry{ID: "AG003", Title: "Dangling", Body: `next: "@config:ZZ999"`},
	)
	require.Empty(t, reg.Invalid())
	require.Equal(t, 6, reg.Len())

	ag1, _ := reg.Config("AG001")
	assert.Equal(t, `see: "Parallel (PE001)"`, ag1.Body)
	ag2, _ := reg.Config("AG002")
	assert.Equal(t, `budget: "4000 tokens"`, ag2.Body)
	tb2, _ := reg.Target("TB002")
	assert.Equal(t, "Tokens:\n  4000 tokens\nSee Agent Mandate (AG001)", tb2.Body)
	ag3, _ := reg.Config("AG003")
	assert.Equal(t, `next: "@config:ZZ999"`, ag3.Body)

	resolver := NewResolver(nil)
	for _, text := range []string{"@config:AG001", "x @config:AG002 y", "@target:TB002", "@config:AG003"} {
		once := resolver.Resolve(text, reg)
		assert.Equal(t, once, resolver.Resolve(once, reg), text)
	}
}

func TestNewRegistry_RejectsCyclicReferences(t *testing.T) {
	reg := NewRegistry(
		Entry{ID: "AG001", Title: "First", Body: `a: "@config:AG002"`},
		Entry{ID: "AG002", Title: "Second", Body: `b: "@config:AG001"`},
		Entry{ID: "PE001", Title: "Outside", Body: `c: "@config:AG001"`},
		Entry{ID: "AG003", Title: "Self", Body: `d: "@config:AG003"`},
	)

	invalid := reg.Invalid()
	require.Len(t, invalid, 3)
	for i, id := range []string{"AG001", "AG002", "AG003"} {
		assert.Equal(t, id, invalid[i].ID)
		assert.ErrorIs(t, invalid[i].Err, ErrCyclicReference)
	}

	require.Equal(t, 1, reg.Len())
	pe, ok := reg.Config("PE001")
	require.True(t, ok)
	assert.Equal(t, `c: "@config:AG001"`, pe.Body)

	resolver := NewResolver(nil)
	once := resolver.Resolve("@config:PE001", reg)
	assert.Equal(t, once, resolver.Resolve(once, reg))
	assert.Equal(t, []string{"@config:AG001"}, resolver.Unresolved(once))
}

func TestNewRegistry_RevalidatesExpandedYAML(t *testing.T) {
	reg := NewRegistry(
		Entry{ID: "AG001", Title: "Quoted", Body: `say: "@target:TB001"`},
		Entry{ID: "TB001", Title: "Greeting", Body: `reply "hi"`, Kind: KindTarget},
	)

	invalid := reg.Invalid()
	require.Len(t, invalid, 1)
	assert.Equal(t, "AG001", invalid[0].ID)
	assert.ErrorIs(t, invalid[0].Err, ErrInvalidYAML)
	_, ok := reg.Target("TB001")
	assert.True(t, ok)
}

func TestResolve_NilRegistry(t *testing.T) {
	resolver := NewResolver(nil)
	assert.Equal(t, "See @config:AG001", resolver.Resolve("See @config:AG001", nil))
	assert.Equal(t, "See @config:AG001", resolver.Resolve("See @config:AG001", NewRegistry()))
}

func TestUnresolved(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "none", text: "nothing here", want: nil},
		{name: "mixed", text: "@config:AG001 then @target:TB2 then @config:AG001", want: []string{"@config:AG001", "@target:TB2"}},
		{name: "malformed ids are skipped", text: "@config:123 @config:AG @target:", want: nil},
		{name: "email-like text", text: "mail me@config.example", want: nil},
		{name: "adjacent", text: "@config:AB1@target:CD2", want: []string{"@config:AB1", "@target:CD2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewResolver(nil).Unresolved(tt.text))
		})
	}
}

func TestRegistry_Index(t *testing.T) {
	reg := NewRegistry(
		Entry{ID: "PE001", Title: "Parallel", Body: "max: 4"},
		Entry{ID: "AG001", Title: "Agent Mandate", Body: "key: value"},
		Entry{ID: "AG002", Title: "Review Rate", Body: "95%", Kind: KindTarget},
	)

	want := "## Shared Intelligence\n\n" +
		"### agent-mandatory\n\n" +
		"**Agent Mandate (AG001):**\n```yaml\nkey: value\n```\n\n" +
		"- **Review Rate (AG002):** 95%\n\n" +
		"### parallel-execution\n\n" +
		"**Parallel (PE001):**\n```yaml\nmax: 4\n```"
	assert.Equal(t, want, reg.Index())

	var empty *Registry
	assert.Equal(t, "", empty.Index())
}
