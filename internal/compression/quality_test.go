package compression

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// elementsWith builds an element set with the given counts.
func elementsWith(yaml, pct, rules, decisions, code int) Elements {
	var e Elements
	for i := 0; i < yaml; i++ {
		e.YAMLBlocks = append(e.YAMLBlocks, YAMLBlock{Content: fmt.Sprintf("k%d: v", i)})
	}
	for i := 0; i < pct; i++ {
		e.Targets = append(e.Targets, ComplianceTarget{Text: fmt.Sprintf("%d%% compliance", 90+i), Percentage: fmt.Sprint(90 + i)})
	}
	for i := 0; i < rules; i++ {
		e.Enforcement = append(e.Enforcement, EnforcementPattern{Text: fmt.Sprintf("rule %d", i)})
	}
	for i := 0; i < decisions; i++ {
		e.Decisions = append(e.Decisions, DecisionTree{Text: fmt.Sprintf("%d. **step**", i+1)})
	}
	for i := 0; i < code; i++ {
		e.Code = append(e.Code, CodePattern{Text: "```\nx\n```"})
	}
	return e
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		elements    Elements
		wantScore   int
		wantQuality Quality
		wantValid   bool
	}{
		{
			name:        "nothing extracted",
			elements:    Elements{},
			wantScore:   0,
			wantQuality: QualityInsufficient,
			wantValid:   false,
		},
		{
			name:        "good coverage",
			elements:    elementsWith(2, 3, 1, 0, 0),
			wantScore:   74,
			wantQuality: QualityGood,
			wantValid:   true,
		},
		{
			name:        "excellent coverage is clamped",
			elements:    elementsWith(3, 4, 2, 0, 0),
			wantScore:   100,
			wantQuality: QualityExcellent,
			wantValid:   true,
		},
		{
			name:        "high score without enough blocks is not excellent",
			elements:    elementsWith(1, 6, 1, 0, 0),
			wantScore:   95,
			wantQuality: QualityGood,
			wantValid:   true,
		},
		{
			name:        "adequate",
			elements:    elementsWith(1, 1, 2, 0, 0),
			wantScore:   43,
			wantQuality: QualityAdequate,
			wantValid:   true,
		},
		{
			name:        "enough elements but score below threshold",
			elements:    elementsWith(0, 1, 2, 0, 0),
			wantScore:   28,
			wantQuality: QualityMinimal,
			wantValid:   false,
		},
		{
			name:        "score above threshold but too few elements",
			elements:    elementsWith(2, 0, 0, 0, 0),
			wantScore:   30,
			wantQuality: QualityMinimal,
			wantValid:   false,
		},
		{
			name:        "decisions and code weigh five each",
			elements:    elementsWith(0, 0, 0, 2, 2),
			wantScore:   20,
			wantQuality: QualityMinimal,
			wantValid:   false,
		},
		{
			name:        "targets without percentages do not score",
			elements:    Elements{Targets: []ComplianceTarget{{Text: "ACHIEVED: done"}, {Text: "threshold: high"}}},
			wantScore:   0,
			wantQuality: QualityInsufficient,
			wantValid:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Validate(tt.elements)
			assert.Equal(t, tt.wantScore, report.Score)
			assert.Equal(t, tt.wantQuality, report.Quality)
			assert.Equal(t, tt.wantValid, report.Valid)
			assert.False(t, report.MCPAware)
			assert.LessOrEqual(t, len(report.Recommendations), 3)
		})
	}
}

func TestValidate_ScoreBounded(t *testing.T) {
	for _, n := range []int{0, 1, 5, 50} {
		report := Validate(elementsWith(n, n, n, n, n))
		assert.GreaterOrEqual(t, report.Score, 0)
		assert.LessOrEqual(t, report.Score, MaxPreservationScore)

		mcp := ValidateMCP(elementsWith(n, n, n, n, n))
		assert.GreaterOrEqual(t, mcp.Score, 0)
		assert.LessOrEqual(t, mcp.Score, MaxPreservationScore)
	}
}

func TestValidate_Recommendations(t *testing.T) {
	t.Run("plain prose gets specific suggestions only", func(t *testing.T) {
		report := Validate(Elements{})
		require.Len(t, report.Recommendations, 3)
		assert.Contains(t, report.Recommendations[0], "configuration block")
		assert.Contains(t, report.Recommendations[1], "percentage target")
		assert.Contains(t, report.Recommendations[2], "enforcement rules")
	})

	t.Run("well covered module asks for decision procedures", func(t *testing.T) {
		report := Validate(elementsWith(2, 3, 1, 0, 0))
		require.Len(t, report.Recommendations, 1)
		assert.Contains(t, report.Recommendations[0], "decision procedures")
	})

	t.Run("complete module has no suggestions", func(t *testing.T) {
		report := Validate(elementsWith(2, 3, 1, 1, 0))
		assert.Empty(t, report.Recommendations)
	})
}

func TestValidateMCP(t *testing.T) {
	batching := func(n int) []MCPPattern {
		var out []MCPPattern
		for i := 0; i < n; i++ {
			out = append(out, MCPPattern{Text: "batch reads", Type: OptimizationBatching})
		}
		return out
	}

	t.Run("batching replaces the configuration weight", func(t *testing.T) {
		e := elementsWith(1, 0, 0, 0, 0)
		e.MCP = batching(2)

		mcp := ValidateMCP(e)
		assert.Equal(t, 40, mcp.Score)
		assert.True(t, mcp.Valid)
		assert.True(t, mcp.MCPAware)
		assert.Equal(t, QualityMinimal, mcp.Quality)

		generic := Validate(e)
		assert.Equal(t, 15, generic.Score)
		assert.False(t, generic.Valid)
	})

	t.Run("without batching the generic weights apply with a higher threshold", func(t *testing.T) {
		e := elementsWith(2, 0, 0, 0, 0)
		e.MCP = []MCPPattern{{Text: "mcp__fs__read", Type: OptimizationToolInvocation}}

		mcp := ValidateMCP(e)
		assert.Equal(t, 30, mcp.Score)
		assert.False(t, mcp.Valid)
		assert.True(t, Validate(e).Valid)
	})

	t.Run("mcp suggestions come first and are capped at two", func(t *testing.T) {
		report := ValidateMCP(Elements{})
		require.Len(t, report.Recommendations, 2)
		assert.True(t, strings.HasPrefix(report.Recommendations[0], "No batching patterns"))
		assert.True(t, strings.HasPrefix(report.Recommendations[1], "No fully qualified tool identifiers"))
	})

	t.Run("excellent tier needs more structure", func(t *testing.T) {
		e := elementsWith(2, 4, 2, 0, 0)
		e.MCP = batching(1)
		report := ValidateMCP(e)
		assert.Equal(t, 20+48+16, report.Score)
		assert.Equal(t, QualityGood, report.Quality)
	})
}

func TestValidateFor(t *testing.T) {
	assert.True(t, ValidateFor("mcp-performance", Elements{}).MCPAware)
	assert.True(t, ValidateFor("MCP", Elements{}).MCPAware)
	assert.False(t, ValidateFor("framework", Elements{}).MCPAware)
}

func TestPreservationReport_Annotation(t *testing.T) {
	report := Validate(elementsWith(2, 3, 1, 0, 0))
	assert.Equal(t,
		"<!-- preservation: score=74 quality=good yaml=2 targets=3 rules=1 valid=true -->",
		report.Annotation())
}
