package ignore

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected string
	}{
		{"empty line", "", ""},
		{"whitespace only", "   ", ""},
		{"comment", "# this is a comment", ""},
		{"negation skipped", "!important.md", ""},
		{"simple file glob", "*.draft.md", "*.draft.md"},
		{"simple directory", "drafts", "**/drafts/**"},
		{"directory with slash", "archive/", "**/archive/**"},
		{"nested path", "core/legacy", "core/legacy/**"},
		{"anchored path", "/scratch", "scratch/**"},
		{"anchored file", "/README.md", "README.md"},
		{"nested directory with slash", "core/legacy/", "core/legacy/**"},
		{"double star pattern", "**/wip", "**/wip/**"},
		{"file with extension", "notes.md", "**/notes.md"},
		{"dotted directory then file", "v1.2/notes", "v1.2/notes/**"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLine(tt.line))
		})
	}
}

func TestParseFS(t *testing.T) {
	fsys := fstest.MapFS{
		".guildignore": {Data: []byte("# Work in progress\ndrafts/\n*.draft.md\n\narchive/\n")},
		".gitignore":   {Data: []byte("archive/\nnotes.md\n")},
	}

	parser := NewParser([]string{DefaultIgnoreFile, ".gitignore"}, []string{"fallback/**"})
	patterns, err := parser.ParseFS(fsys)
	require.NoError(t, err)

	assert.Equal(t, []string{"**/drafts/**", "*.draft.md", "**/archive/**", "**/notes.md"}, patterns)
}

func TestParseProject_NoIgnoreFiles(t *testing.T) {
	fallback := []string{".git/**", "drafts/**"}
	parser := NewParser([]string{DefaultIgnoreFile}, fallback)

	patterns, err := parser.ParseProject(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, fallback, patterns)
}

func TestParseProject_ReadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultIgnoreFile), []byte("drafts/\n"), 0o644))

	patterns, err := NewParser([]string{DefaultIgnoreFile}, nil).ParseProject(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"**/drafts/**"}, patterns)
}

func TestDeduplicate(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c", "d"}, deduplicate([]string{"a", "b", "a", "c", "b", "d"}))
}

func TestMatcher(t *testing.T) {
	m := NewMatcher([]string{"drafts/**", "*.draft.md", "**/notes.md", "[invalid"})

	tests := []struct {
		path string
		want bool
	}{
		{"drafts/a.md", true},
		{"drafts/nested/b.md", true},
		{"core/agent.draft.md", true},
		{"core/notes.md", true},
		{"notes.md", true},
		{"core/agent.md", false},
		{"./core/agent.md", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.path))
		})
	}

	assert.Len(t, m.Patterns(), 3)

	var none *Matcher
	assert.False(t, none.Match("anything.md"))
}
