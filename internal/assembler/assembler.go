package assembler

import (
	"context"
	"fmt"
	"regexp"
	"runtime"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/guild/internal/compression"
	"github.com/fyrsmithlabs/guild/internal/logging"
	"github.com/fyrsmithlabs/guild/internal/modules"
	"github.com/fyrsmithlabs/guild/internal/reference"
	"github.com/fyrsmithlabs/guild/internal/secrets"
)

// SharedIntelligence is the template placeholder replaced by the registry
// index.
const SharedIntelligence = "{SHARED_INTELLIGENCE}"

// placeholder matches "{{core/name}}" and "{SHARED_INTELLIGENCE}" in one
// pass so substituted content is never expanded again.
var placeholder = regexp.MustCompile(`\{\{([A-Za-z0-9_./-]+)\}\}|\{SHARED_INTELLIGENCE\}`)

// Template is a command template.
type Template struct {
	Name    string
	Content string
}

// Compressed is one module after compression.
type Compressed struct {
	Key    string
	Result *compression.Result

	// Embedded is the text substituted into templates.
	Embedded string

	// Redactions counts secrets removed before compression.
	Redactions int

	// Unresolved lists references the registry could not resolve.
	Unresolved []string
}

// Document is a rendered template.
type Document struct {
	Name    string
	Content string

	// Missing lists placeholders with no matching module; they are left in
	// Content as written.
	Missing []string
}

// Run is the outcome of one assembly.
type Run struct {
	ID string

	// Revision identifies the guideline source, see DetectRevision.
	Revision  string
	Modules   []*Compressed
	Documents []*Document
}

// Module returns the compressed module for key.
func (r *Run) Module(key string) (*Compressed, bool) {
	for _, m := range r.Modules {
		if m.Key == key {
			return m, true
		}
	}
	return nil, false
}

// Invalid returns the modules whose preservation report is not valid.
func (r *Run) Invalid() []*Compressed {
	var out []*Compressed
	for _, m := range r.Modules {
		if m.Result != nil && m.Result.Report != nil && !m.Result.Report.Valid {
			out = append(out, m)
		}
	}
	return out
}

// Assembler compresses modules and renders templates.
type Assembler struct {
	engine      *compression.Engine
	resolver    *reference.Resolver
	registry    *reference.Registry
	scrubber    secrets.Scrubber
	logger      *logging.Logger
	mode        compression.Mode
	level       compression.Level
	concurrency int
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithRegistry sets the registry used for references and the shared
// intelligence index.
func WithRegistry(reg *reference.Registry) Option {
	return func(a *Assembler) {
		a.registry = reg
	}
}

// WithScrubber sets the secret scrubber applied before compression.
func WithScrubber(s secrets.Scrubber) Option {
	return func(a *Assembler) {
		if s != nil {
			a.scrubber = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMode sets the mode used for level selection.
func WithMode(mode compression.Mode) Option {
	return func(a *Assembler) {
		a.mode = mode
	}
}

// WithLevel compresses every module at level instead of selecting one.
func WithLevel(level compression.Level) Option {
	return func(a *Assembler) {
		a.level = level
	}
}

// WithConcurrency bounds the number of modules compressed at once.
func WithConcurrency(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// New returns an assembler backed by engine.
func New(engine *compression.Engine, opts ...Option) (*Assembler, error) {
	if engine == nil {
		return nil, ErrNilEngine
	}
	a := &Assembler{
		engine:      engine,
		resolver:    reference.NewResolver(engine.Patterns()),
		scrubber:    &secrets.NoopScrubber{},
		logger:      logging.FromContext(context.Background()),
		mode:        compression.ModeInstall,
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(a)
	}
	if _, err := compression.ParseMode(string(a.mode)); err != nil {
		return nil, err
	}
	if a.level != "" {
		if _, err := compression.ParseLevel(string(a.level)); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Assemble compresses mods and renders every template.
func (a *Assembler) Assemble(ctx context.Context, mods []*modules.Module, templates []Template) (*Run, error) {
	run := &Run{ID: uuid.New().String()}
	ctx = logging.WithRunID(ctx, run.ID)

	compressed, err := a.Compress(ctx, mods)
	if err != nil {
		return nil, err
	}
	run.Modules = compressed

	for _, tmpl := range templates {
		doc, err := a.Render(tmpl, compressed)
		if err != nil {
			return nil, err
		}
		if len(doc.Missing) > 0 {
			a.logger.Warn(ctx, "template references unknown modules",
				zap.String("template", doc.Name),
				zap.Strings("missing", doc.Missing))
		}
		run.Documents = append(run.Documents, doc)
	}

	a.logger.Info(ctx, "assembly complete",
		zap.Int("modules", len(run.Modules)),
		zap.Int("documents", len(run.Documents)),
		zap.Int("invalid", len(run.Invalid())))
	return run, nil
}

// Compress compresses mods concurrently and returns the results sorted by
// key.
func (a *Assembler) Compress(ctx context.Context, mods []*modules.Module) ([]*Compressed, error) {
	for i, m := range mods {
		if m == nil {
			return nil, fmt.Errorf("module %d: %w", i, ErrNilModule)
		}
	}

	results := make([]*Compressed, len(mods))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, m := range mods {
		g.Go(func() error {
			c, err := a.compressOne(gctx, m)
			if err != nil {
				return fmt.Errorf("compressing %s: %w", m.Key, err)
			}
			results[i] = c
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Key < results[j].Key })
	return results, nil
}

func (a *Assembler) compressOne(ctx context.Context, m *modules.Module) (*Compressed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if logging.ValidModuleKey(m.Key) {
		ctx = logging.WithModule(ctx, m.Key)
	}

	scrubbed := a.scrubber.Scrub(m.Content)
	if scrubbed.HasFindings() {
		a.logger.Warn(ctx, scrubbed.Summary(),
			zap.Int("count", scrubbed.TotalFindings),
			zap.Strings("rules", scrubbed.RuleIDs()))
	}

	content := a.resolver.Resolve(scrubbed.Scrubbed, a.registry)
	unresolved := a.resolver.Unresolved(content)
	if len(unresolved) > 0 {
		a.logger.Warn(ctx, "unresolved references", zap.Strings("references", unresolved))
	}

	input := m.Module
	input.Content = content

	var (
		result *compression.Result
		err    error
	)
	if a.level != "" {
		result, err = a.engine.CompressAt(ctx, &input, a.level)
	} else {
		result, err = a.engine.Compress(ctx, &input, a.mode)
	}
	if err != nil {
		return nil, err
	}

	embedded := result.Content
	if embedded == "" {
		a.logger.Warn(ctx, "module has no structured content, embedding cleaned text")
		embedded = content
	}

	a.logger.Debug(ctx, "module compressed",
		zap.String("level", string(result.Level)),
		zap.Int("score", result.Report.Score),
		zap.Int("original_size", result.OriginalSize),
		zap.Int("compressed_size", result.CompressedSize))

	return &Compressed{
		Key:        m.Key,
		Result:     result,
		Embedded:   embedded,
		Redactions: scrubbed.TotalFindings,
		Unresolved: unresolved,
	}, nil
}

// Render substitutes compressed modules into tmpl. Unknown placeholders are
// left untouched and reported in Document.Missing.
func (a *Assembler) Render(tmpl Template, compressed []*Compressed) (*Document, error) {
	if tmpl.Name == "" {
		return nil, ErrEmptyTemplate
	}

	byKey := make(map[string]string, len(compressed))
	for _, c := range compressed {
		byKey[c.Key] = c.Embedded
	}

	var missing []string
	seen := make(map[string]bool)
	content := placeholder.ReplaceAllStringFunc(tmpl.Content, func(match string) string {
		if match == SharedIntelligence {
			return a.registry.Index()
		}
		key := match[2 : len(match)-2]
		if embedded, ok := byKey[key]; ok {
			return embedded
		}
		if !seen[key] {
			seen[key] = true
			missing = append(missing, key)
		}
		return match
	})

	return &Document{Name: tmpl.Name, Content: content, Missing: missing}, nil
}
