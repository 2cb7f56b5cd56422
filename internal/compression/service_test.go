package compression

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/guild/internal/logging"
	"github.com/fyrsmithlabs/guild/internal/telemetry"
)

// frameworkModule carries a labelled block, three percentage targets and an
// enforcement section.
const frameworkModule = "# Framework\n\n" +
	"**Agent Mandatory Config:**\n" +
	"```yaml\n" +
	"agents:\n" +
	"    mandatory: true\n" +
	"    # reviewers are assigned automatically\n" +
	"    reviewers: 2\n" +
	"```\n\n" +
	"Agents must reach 95% compliance.\n" +
	"Parallel execution target of 90% for independent tasks.\n" +
	"threshold: 85%\n\n" +
	"**MANDATORY ENFORCEMENT:** Agents must validate every handoff against the shared configuration before continuing.\n\n" +
	"## Procedures\n\n" +
	"1. **Check scope**: if the change spans packages, plan first.\n" +
	"2. **Validate** the plan with a reviewer.\n"

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	engine, err := NewEngine(opts...)
	require.NoError(t, err)
	return engine
}

func TestEngine_Compress_AgentModule(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.Compress(context.Background(), &Module{
		Name:     "agent",
		Content:  agentModule,
		Priority: PriorityCritical,
	}, ModeInstall)
	require.NoError(t, err)

	assert.Equal(t, LevelComprehensive, result.Level)
	assert.Equal(t, "agent", result.ModuleName)
	assert.Contains(t, result.Summary, "**Agent Mandatory Config:**")
	assert.True(t, strings.HasPrefix(result.Content, result.Summary))
	assert.True(t, strings.HasSuffix(result.Content, result.Report.Annotation()))
	assert.Equal(t, len([]rune(result.Content)), result.CompressedSize)
}

func TestEngine_Compress_CRLF(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	lf, err := engine.Compress(ctx, &Module{Name: "framework", Content: frameworkModule}, ModeInstall)
	require.NoError(t, err)
	crlf, err := engine.Compress(ctx, &Module{
		Name:    "framework",
		Content: strings.ReplaceAll(frameworkModule, "\n", "\r\n"),
	}, ModeInstall)
	require.NoError(t, err)

	assert.Equal(t, lf.Content, crlf.Content)
	assert.Equal(t, lf.Report, crlf.Report)
	assert.Contains(t, crlf.Summary, "**Agent Mandatory Config:**")
}

func TestEngine_WithPatternTable(t *testing.T) {
	pt := NewPatternTable(WithReferencePatterns(regexp.MustCompile(`\[\[config:(\w+)\]\]`), nil))
	engine := newTestEngine(t, WithPatternTable(pt))

	require.Same(t, pt, engine.Patterns())
	assert.Equal(t, "AG001", engine.Patterns().ConfigRefPattern().FindStringSubmatch("see [[config:AG001]]")[1])
	assert.True(t, engine.Patterns().TargetRefPattern().MatchString("@target:TB001"))
	assert.NotSame(t, pt, newTestEngine(t).Patterns())
}

func TestEngine_Compress_Deterministic(t *testing.T) {
	engine := newTestEngine(t)
	module := &Module{Name: "framework", Content: frameworkModule, Category: "framework"}

	for _, level := range Levels() {
		t.Run(string(level), func(t *testing.T) {
			first, err := engine.CompressAt(context.Background(), module, level)
			require.NoError(t, err)
			second, err := engine.CompressAt(context.Background(), module, level)
			require.NoError(t, err)

			assert.Equal(t, first.Content, second.Content)
			assert.Equal(t, first.Report, second.Report)
		})
	}
}

func TestEngine_Compress_Concurrent(t *testing.T) {
	engine := newTestEngine(t)
	module := &Module{Name: "framework", Content: frameworkModule}

	want, err := engine.CompressAt(context.Background(), module, LevelStandard)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := engine.CompressAt(context.Background(), module, LevelStandard)
			if err == nil {
				results[i] = r.Content
			}
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want.Content, got)
	}
}

func TestEngine_Compress_LevelMonotonicity(t *testing.T) {
	engine := newTestEngine(t)
	module := &Module{Name: "framework", Content: frameworkModule}

	deployment, err := engine.CompressAt(context.Background(), module, LevelDeployment)
	require.NoError(t, err)
	standard, err := engine.CompressAt(context.Background(), module, LevelStandard)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(deployment.Summary), len(standard.Summary))
	assert.Contains(t, deployment.Summary, "**Targets:** AGENT-MANDATORY:95%")
	assert.Contains(t, deployment.Summary, "  mandatory: true")
	assert.Contains(t, deployment.Summary, "agents:\n  mandatory: true\n  reviewers: 2")
	assert.Contains(t, standard.Summary, "    # reviewers are assigned automatically")
	assert.Contains(t, standard.Summary, "### Decision Procedures")
}

func TestEngine_Compress_EmptyInput(t *testing.T) {
	engine := newTestEngine(t)

	for _, content := range []string{"", "Plain prose without any structure at all."} {
		for _, level := range Levels() {
			result, err := engine.CompressAt(context.Background(), &Module{Name: "empty", Content: content}, level)
			require.NoError(t, err)
			assert.Equal(t, "", result.Summary)
			assert.Equal(t, "", result.Content)
			assert.Equal(t, 0, result.Report.Score)
			assert.False(t, result.Report.Valid)
		}
	}
}

func TestEngine_Compress_Errors(t *testing.T) {
	engine := newTestEngine(t)

	_, err := engine.Compress(context.Background(), nil, ModeInstall)
	assert.ErrorIs(t, err, ErrNilModule)

	_, err = engine.CompressAt(context.Background(), nil, LevelStandard)
	var argErr *ArgumentError
	require.True(t, errors.As(err, &argErr))
	assert.Equal(t, "module", argErr.Arg)

	_, err = engine.CompressAt(context.Background(), &Module{Content: "x"}, Level("maximal"))
	assert.ErrorIs(t, err, ErrUnknownLevel)

	_, err = engine.Compress(context.Background(), &Module{Content: "x"}, Mode("turbo"))
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestEngine_Compress_MCPCategory(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.CompressAt(context.Background(), &Module{
		Name:     "mcp",
		Content:  "Read files together for 90% efficiency gains.\n\n```json\n{\"batch\": [\"mcp__fs__read_file\"]}\n```\n",
		Category: "mcp-performance",
	}, LevelStandard)
	require.NoError(t, err)

	assert.True(t, result.Report.MCPAware)
	assert.Greater(t, result.Report.Metrics.BatchingPatterns, 0)
}

func TestEngine_LogsLowPreservation(t *testing.T) {
	logger := logging.NewTestLogger()
	engine := newTestEngine(t, WithLogger(logger.Underlying()))

	_, err := engine.CompressAt(context.Background(), &Module{Name: "thin", Content: "```go\nx := 1\n```\n"}, LevelStandard)
	require.NoError(t, err)

	logger.AssertLogged(t, zapcore.WarnLevel, "low preservation score")
	logger.AssertField(t, "low preservation score", "module", "thin")
}

func TestEngine_Telemetry(t *testing.T) {
	tel := telemetry.NewTestTelemetry()
	engine := newTestEngine(t,
		WithTracerProvider(tel.TracerProvider()),
		WithMeterProvider(tel.MeterProvider()),
	)

	_, err := engine.CompressAt(context.Background(), &Module{Name: "framework", Content: frameworkModule}, LevelMinimal)
	require.NoError(t, err)

	tel.AssertSpanExists(t, "compression.compress")
	tel.AssertSpanAttribute(t, "compression.compress", "compression.level", "minimal")
	tel.AssertSpanAttribute(t, "compression.compress", "module.name", "framework")

	require.NoError(t, tel.MetricReader.ForceFlush(context.Background()))
	var names []string
	for _, rm := range tel.MetricReader.Metrics() {
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				names = append(names, m.Name)
			}
		}
	}
	assert.Contains(t, names, "guild.compression.operations_total")
	assert.Contains(t, names, "guild.compression.preservation_score")
}
