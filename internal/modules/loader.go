package modules

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/guild/internal/compression"
	"github.com/fyrsmithlabs/guild/internal/ignore"
)

// DefaultGlob selects core modules under a guideline directory.
const DefaultGlob = "core/**/*.md"

// Module is a knowledge module loaded from disk.
type Module struct {
	compression.Module

	// Key is the slash-separated path relative to the guideline directory
	// without its extension, e.g. "core/agent-framework". Templates refer
	// to the module as "{{core/agent-framework}}".
	Key string

	// Path is the slash-separated path relative to the guideline directory.
	Path string
}

// Loader discovers and reads knowledge modules.
type Loader struct {
	fsys    fs.FS
	glob    string
	ignore  *ignore.Matcher
	logger  *zap.Logger
	process bool

	defaultPriority compression.Priority
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithGlob sets the doublestar pattern used to discover modules.
func WithGlob(glob string) LoaderOption {
	return func(l *Loader) {
		if glob != "" {
			l.glob = glob
		}
	}
}

// WithDefaultPriority sets the priority of modules whose frontmatter has
// none or an unknown one.
func WithDefaultPriority(p compression.Priority) LoaderOption {
	return func(l *Loader) {
		if p, ok := compression.ParsePriority(string(p)); ok {
			l.defaultPriority = p
		}
	}
}

// WithIgnore excludes paths matched by m.
func WithIgnore(m *ignore.Matcher) LoaderOption {
	return func(l *Loader) {
		l.ignore = m
	}
}

// WithLoaderLogger sets the logger.
func WithLoaderLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithRawContent disables ProcessContent cleanup of loaded modules.
func WithRawContent() LoaderOption {
	return func(l *Loader) {
		l.process = false
	}
}

// NewLoader returns a loader reading modules from fsys.
func NewLoader(fsys fs.FS, opts ...LoaderOption) *Loader {
	l := &Loader{
		fsys:    fsys,
		glob:    DefaultGlob,
		logger:  zap.NewNop(),
		process: true,

		defaultPriority: compression.PriorityMedium,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewDirLoader returns a loader for the guideline directory dir. Exclude
// patterns are read from dir's .guildignore when present.
func NewDirLoader(dir string, opts ...LoaderOption) (*Loader, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("guideline directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("guideline directory %s: %w", dir, ErrNotDirectory)
	}

	patterns, err := ignore.NewParser([]string{ignore.DefaultIgnoreFile}, nil).ParseProject(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ignore.DefaultIgnoreFile, err)
	}

	opts = append([]LoaderOption{WithIgnore(ignore.NewMatcher(patterns))}, opts...)
	return NewLoader(os.DirFS(dir), opts...), nil
}

// Discover returns the module paths matching the glob, minus ignored paths,
// sorted.
func (l *Loader) Discover() ([]string, error) {
	matches, err := doublestar.Glob(l.fsys, l.glob, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", l.glob, err)
	}

	paths := matches[:0]
	for _, p := range matches {
		if l.ignore.Match(p) {
			l.logger.Debug("module ignored", zap.String("path", p))
			continue
		}
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// Load reads every discovered module, sorted by key.
func (l *Loader) Load(ctx context.Context) ([]*Module, error) {
	paths, err := l.Discover()
	if err != nil {
		return nil, err
	}

	out := make([]*Module, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := l.LoadFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	l.logger.Info("modules loaded", zap.Int("count", len(out)), zap.String("glob", l.glob))
	return out, nil
}

// LoadFile reads a single module at the slash-separated path p.
func (l *Loader) LoadFile(p string) (*Module, error) {
	data, err := fs.ReadFile(l.fsys, p)
	if err != nil {
		return nil, fmt.Errorf("reading module %s: %w", p, err)
	}

	m, err := l.Parse(p, data)
	if err != nil {
		return nil, fmt.Errorf("parsing module %s: %w", p, err)
	}
	return m, nil
}

// Parse builds a module from raw markdown. Frontmatter may be YAML ("---")
// or TOML ("+++"); its fields name, priority and category are optional; the name defaults to the file stem.
// When the body carries CORE-START/CORE-END markers only those sections are
// kept. CRLF line endings are converted to LF.
func (l *Loader) Parse(p string, data []byte) (*Module, error) {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	fm, err := parseFrontmatter(data)
	if err != nil {
		return nil, err
	}

	key := strings.TrimSuffix(p, path.Ext(p))
	stem := path.Base(key)

	body := stripFrontmatter(string(data))
	if core, ok := ExtractCoreSections(body); ok {
		body = core
	}
	if l.process {
		body = ProcessContent(body)
	}

	priority, ok := compression.ParsePriority(fm.str("priority"))
	if !ok {
		priority = l.defaultPriority
	}
	if !ok && fm.str("priority") != "" {
		l.logger.Warn("unknown module priority, using default",
			zap.String("module", key),
			zap.String("priority", fm.str("priority")),
			zap.String("default", string(priority)))
	}

	name := fm.str("name")
	if name == "" {
		name = stem
	}

	m := &Module{
		Module: compression.Module{
			Name:     name,
			Content:  body,
			Priority: priority,
			Category: fm.str("category"),
		}.Normalize(),
		Key:  key,
		Path: p,
	}
	return m, nil
}

// frontmatter holds decoded frontmatter values.
type frontmatter map[string]interface{}

func (f frontmatter) str(key string) string {
	v, ok := f[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

const (
	yamlDelimiter = "---"
	tomlDelimiter = "+++"
)

// parseFrontmatter decodes a leading YAML ("---") or TOML ("+++") block.
// Content without frontmatter yields an empty map.
func parseFrontmatter(data []byte) (frontmatter, error) {
	if block, _, ok := splitFrontmatter(string(data), tomlDelimiter); ok {
		fm := frontmatter{}
		if _, err := toml.Decode(block, &fm); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFrontmatter, err)
		}
		return fm, nil
	}

	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	pctx := parser.NewContext()
	if err := md.Convert(data, io.Discard, parser.WithContext(pctx)); err != nil {
		return nil, fmt.Errorf("failed to parse markdown: %w", err)
	}

	metaData, err := meta.TryGet(pctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrontmatter, err)
	}
	return frontmatter(metaData), nil
}

// splitFrontmatter returns the block between a leading delim line and the
// next delim line, and the content after it.
func splitFrontmatter(content, delim string) (block, body string, ok bool) {
	if !strings.HasPrefix(content, delim) {
		return "", content, false
	}

	lines := strings.Split(content, "\n")
	if strings.TrimSpace(lines[0]) != delim {
		return "", content, false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == delim {
			return strings.Join(lines[1:i], "\n"), strings.TrimLeft(strings.Join(lines[i+1:], "\n"), "\n"), true
		}
	}
	return "", content, false
}

// stripFrontmatter removes a leading YAML or TOML frontmatter block.
func stripFrontmatter(content string) string {
	for _, delim := range []string{yamlDelimiter, tomlDelimiter} {
		if _, body, ok := splitFrontmatter(content, delim); ok {
			return body
		}
	}
	return content
}
