// Package ignore provides gitignore-style pattern parsing and matching for
// knowledge-module discovery.
package ignore

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultIgnoreFile is the ignore file read from a guideline directory.
const DefaultIgnoreFile = ".guildignore"

// Parser reads and parses gitignore-style files.
type Parser struct {
	// IgnoreFiles is the list of ignore file names to look for.
	IgnoreFiles []string

	// FallbackPatterns are returned when no ignore files are found.
	FallbackPatterns []string
}

// NewParser creates a new ignore file parser with the given configuration.
func NewParser(ignoreFiles, fallbackPatterns []string) *Parser {
	return &Parser{
		IgnoreFiles:      ignoreFiles,
		FallbackPatterns: fallbackPatterns,
	}
}

// ParseProject reads all ignore files from the directory root and returns
// combined exclude patterns.
func (p *Parser) ParseProject(root string) ([]string, error) {
	return p.ParseFS(os.DirFS(root))
}

// ParseFS reads all ignore files from the root of fsys and returns combined
// exclude patterns. If no ignore files are found, returns fallback patterns.
func (p *Parser) ParseFS(fsys fs.FS) ([]string, error) {
	var patterns []string
	foundAny := false

	for _, ignoreFile := range p.IgnoreFiles {
		filePatterns, err := parseFile(fsys, ignoreFile)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		patterns = append(patterns, filePatterns...)
		foundAny = true
	}

	if !foundAny {
		return p.FallbackPatterns, nil
	}

	return deduplicate(patterns), nil
}

// parseFile reads a single gitignore-style file and returns patterns.
func parseFile(fsys fs.FS, name string) ([]string, error) {
	file, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var patterns []string
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		if pattern := parseLine(scanner.Text()); pattern != "" {
			patterns = append(patterns, pattern)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return patterns, nil
}

// parseLine parses a single line from an ignore file.
// Returns empty string for comments and blank lines.
func parseLine(line string) string {
	line = strings.TrimRight(line, " \t")

	if line == "" || strings.HasPrefix(line, "#") {
		return ""
	}

	// Negation patterns are not supported.
	if strings.HasPrefix(line, "!") {
		return ""
	}

	return toGlobPattern(line)
}

// toGlobPattern converts a gitignore pattern to a doublestar pattern.
func toGlobPattern(pattern string) string {
	anchored := strings.HasPrefix(pattern, "/")
	pattern = strings.TrimPrefix(pattern, "/")

	// Trailing slash marks a directory.
	dir := strings.HasSuffix(pattern, "/")
	pattern = strings.TrimSuffix(pattern, "/")

	// Names without a slash match at any depth unless anchored.
	if !anchored && !strings.Contains(pattern, "/") && !strings.HasPrefix(pattern, "*") {
		pattern = "**/" + pattern
	}

	switch {
	case dir:
		pattern += "/**"
	case strings.HasSuffix(pattern, "/**"), strings.HasSuffix(pattern, "/*"):
	case !strings.Contains(path.Base(pattern), "."):
		// Extensionless names are treated as directories.
		pattern += "/**"
	}

	return pattern
}

// deduplicate removes duplicate patterns while preserving order.
func deduplicate(patterns []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(patterns))

	for _, p := range patterns {
		if !seen[p] {
			seen[p] = true
			result = append(result, p)
		}
	}

	return result
}

// Matcher reports whether slash-separated relative paths are excluded.
type Matcher struct {
	patterns []string
}

// NewMatcher returns a matcher for doublestar patterns. Invalid patterns are
// dropped.
func NewMatcher(patterns []string) *Matcher {
	valid := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if doublestar.ValidatePattern(p) {
			valid = append(valid, p)
		}
	}
	return &Matcher{patterns: valid}
}

// Patterns returns the patterns the matcher applies.
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.patterns...)
}

// Match reports whether rel matches any pattern. A pattern without a
// directory component, such as "*.draft.md", also matches the base name.
func (m *Matcher) Match(rel string) bool {
	if m == nil {
		return false
	}
	rel = strings.TrimPrefix(path.Clean(rel), "./")
	for _, p := range m.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if !strings.Contains(p, "/") {
			if ok, _ := doublestar.Match(p, path.Base(rel)); ok {
				return true
			}
		}
	}
	return false
}
