package compression

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const agentModule = "# Agent Rules\n\n" +
	"**Agent Mandatory Config:**\n" +
	"```yaml\n" +
	"agent_enforcement:\n" +
	"  mandatory: true\n" +
	"  compliance_target: 95\n" +
	"```\n\n" +
	"All agents must reach 95% compliance.\n"

func TestYAMLBlockExtractor_Extract(t *testing.T) {
	pt := NewPatternTable()

	tests := []struct {
		name string
		text string
		want []YAMLBlock
	}{
		{
			name: "labelled block",
			text: agentModule,
			want: []YAMLBlock{{
				Content: "agent_enforcement:\n  mandatory: true\n  compliance_target: 95",
				Context: "Agent Mandatory Config:",
			}},
		},
		{
			name: "unlabelled block",
			text: "Intro text.\n\n```yaml\nkey: value\n```\n",
			want: []YAMLBlock{{Content: "key: value"}},
		},
		{
			name: "label separated by prose is not attached",
			text: "**Label:**\nSome prose in between.\n```yaml\nkey: value\n```\n",
			want: []YAMLBlock{{Content: "key: value"}},
		},
		{
			name: "yml tag and document order",
			text: "**First:**\n```yml\na: 1\n```\n\n**Second:**\n\n```yaml\nb: 2\n```\n",
			want: []YAMLBlock{
				{Content: "a: 1", Context: "First:"},
				{Content: "b: 2", Context: "Second:"},
			},
		},
		{
			name: "indentation preserved byte for byte",
			text: "```yaml\nroot:\n    child:\n        leaf: true  \n```\n",
			want: []YAMLBlock{{Content: "root:\n    child:\n        leaf: true  "}},
		},
		{
			name: "non-yaml fences ignored",
			text: "```go\nfunc main() {}\n```\n",
			want: nil,
		},
		{
			name: "empty text",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewYAMLBlockExtractor(pt).Extract(tt.text)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTargetExtractor_Extract(t *testing.T) {
	pt := NewPatternTable()

	tests := []struct {
		name string
		text string
		want []ComplianceTarget
	}{
		{
			name: "percentage compliance phrase",
			text: "Reach 95% compliance.",
			want: []ComplianceTarget{{Text: "95% compliance", Percentage: "95", Category: TargetGeneral}},
		},
		{
			name: "target of phrase classified by line",
			text: "Agent target of 90% for all runs",
			want: []ComplianceTarget{{Text: "target of 90%", Percentage: "90", Category: TargetAgentMandatory}},
		},
		{
			name: "achieved phrase",
			text: "ACHIEVED: 94% parallel execution",
			want: []ComplianceTarget{{Text: "ACHIEVED: 94% parallel execution", Percentage: "94", Category: TargetParallelExecution}},
		},
		{
			name: "generic threshold declaration",
			text: "threshold: 80%",
			want: []ComplianceTarget{{Text: "threshold: 80%", Percentage: "80", Category: TargetThreshold}},
		},
		{
			name: "overlapping patterns keep both captures in position order",
			text: "Research target: 95% compliance",
			want: []ComplianceTarget{
				{Text: "target: 95%", Percentage: "95", Category: TargetResearchProtocol},
				{Text: "95% compliance", Percentage: "95", Category: TargetResearchProtocol},
			},
		},
		{
			name: "named field",
			text: "batch_threshold: 85",
			want: []ComplianceTarget{{Text: "batch_threshold: 85", Percentage: "85", Category: TargetBatchingOptimization}},
		},
		{
			name: "plain prose",
			text: "The team meets weekly to discuss progress.",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewTargetExtractor(pt).Extract(tt.text)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnforcementExtractor_Extract(t *testing.T) {
	pt := NewPatternTable()

	t.Run("labelled section ends at heading", func(t *testing.T) {
		text := "## Rules\n\n**MANDATORY:** Every agent must validate its output before handing off to the next stage.\n\n## Other\nText"
		got := NewEnforcementExtractor(pt).Extract(text)
		require.Len(t, got, 1)
		assert.Equal(t, "**MANDATORY:** Every agent must validate its output before handing off to the next stage.", got[0].Text)
		assert.Equal(t, EnforcementGeneric, got[0].Type)
		assert.Equal(t, RulePriorityHigh, got[0].Priority)
		assert.False(t, got[0].HasYAML)
	})

	t.Run("section ends at double blank line", func(t *testing.T) {
		text := "**GUARD RAILS:** Agents must never write outside the workspace directory.\n\n\nUnrelated closing paragraph."
		got := NewEnforcementExtractor(pt).Extract(text)
		require.Len(t, got, 1)
		assert.NotContains(t, got[0].Text, "Unrelated")
		assert.Equal(t, EnforcementAccessControl, got[0].Type)
	})

	t.Run("short captures are noise", func(t *testing.T) {
		got := NewEnforcementExtractor(pt).Extract("**GUARD:** keep it short.")
		assert.Empty(t, got)
	})

	t.Run("yaml block with enforcement keywords", func(t *testing.T) {
		text := "```yaml\nfirewall:\n  enforce: true\n  block_unapproved_tools: true\n```\n"
		got := NewEnforcementExtractor(pt).Extract(text)
		require.Len(t, got, 1)
		assert.True(t, got[0].HasYAML)
		assert.Equal(t, EnforcementAccessControl, got[0].Type)
		assert.Equal(t, "```yaml\nfirewall:\n  enforce: true\n  block_unapproved_tools: true\n```", got[0].Text)
	})

	t.Run("yaml block without keywords is ignored", func(t *testing.T) {
		got := NewEnforcementExtractor(pt).Extract("```yaml\nname: plain settings for the formatter\n```\n")
		assert.Empty(t, got)
	})

	t.Run("enforcement bullets", func(t *testing.T) {
		text := "ENFORCEMENT RULES:\n- agents must not skip validation steps\n- every run is audited\n"
		got := NewEnforcementExtractor(pt).Extract(text)
		require.Len(t, got, 1)
		assert.Equal(t, "ENFORCEMENT RULES:\n- agents must not skip validation steps\n- every run is audited", got[0].Text)
		assert.Equal(t, EnforcementMonitoring, got[0].Type)
		assert.Equal(t, RulePriorityHigh, got[0].Priority)
	})

	t.Run("protocol section", func(t *testing.T) {
		text := "### RESEARCH PROTOCOL\nConsult the official documentation before proposing any change.\n\n## Next"
		got := NewEnforcementExtractor(pt).Extract(text)
		require.Len(t, got, 1)
		assert.Equal(t, EnforcementProtocol, got[0].Type)
		assert.Equal(t, RulePriorityLow, got[0].Priority)
	})

	t.Run("identical captures from two shapes are deduplicated", func(t *testing.T) {
		text := "**MANDATORY ENFORCEMENT:**\n- agents must not skip validation steps at any time\n"
		got := NewEnforcementExtractor(pt).Extract(text)
		require.Len(t, got, 1)
	})

	t.Run("section keeps embedded yaml", func(t *testing.T) {
		text := "**BLOCK LIST ENFORCEMENT:**\n\n```yaml\ndenied:\n  - rm -rf\n```\n\n## Next"
		got := NewEnforcementExtractor(pt).Extract(text)
		require.NotEmpty(t, got)
		assert.True(t, got[0].HasYAML)
	})
}

func TestDecisionExtractor_Extract(t *testing.T) {
	text := "1. **Check scope**: if the task touches more than one package, plan first.\n" +
		"2. **Validate**: run the tests.\n" +
		"3. **Ship** the change.\n\n## Next\n"

	got := NewDecisionExtractor(NewPatternTable()).Extract(text)
	require.Len(t, got, 3)
	assert.Equal(t, DecisionTree{Text: "1. **Check scope**: if the task touches more than one package, plan first.", Type: DecisionConditional}, got[0])
	assert.Equal(t, DecisionTree{Text: "2. **Validate**: run the tests.", Type: DecisionValidation}, got[1])
	assert.Equal(t, DecisionTree{Text: "3. **Ship** the change.", Type: DecisionProcedural}, got[2])
}

func TestCodeExtractor_Extract(t *testing.T) {
	text := "```go\nfmt.Println(1)\n```\n\n```\nplain\n```\n"

	got := NewCodeExtractor(NewPatternTable()).Extract(text)
	require.Len(t, got, 2)
	assert.Equal(t, CodePattern{Text: "```go\nfmt.Println(1)\n```", Language: "go"}, got[0])
	assert.Equal(t, CodePattern{Text: "```\nplain\n```", Language: ""}, got[1])
}

func TestMCPExtractor_Extract(t *testing.T) {
	pt := NewPatternTable()

	t.Run("identifiers efficiency and templates", func(t *testing.T) {
		text := "Use mcp__github__search_code for lookups.\n" +
			"Group the reads for 90% efficiency gains.\n" +
			"workflow template: research-flow\n"
		got := NewMCPExtractor(pt).Extract(text)
		require.Len(t, got, 3)
		assert.Equal(t, MCPPattern{Text: "mcp__github__search_code", Type: OptimizationToolInvocation}, got[0])
		assert.Equal(t, MCPPattern{Text: "90% efficiency", Type: OptimizationEfficiency, Efficiency: 90}, got[1])
		assert.Equal(t, OptimizationWorkflow, got[2].Type)
	})

	t.Run("efficiency outside the allow list is ignored", func(t *testing.T) {
		got := NewMCPExtractor(pt).Extract("Expect 70% efficiency at best.")
		assert.Empty(t, got)
	})

	t.Run("optimization fence and synergy phrase", func(t *testing.T) {
		text := "Tool synergy between search and edit\n\n```json\n{\"batch\": [\"read\", \"write\"]}\n```\n"
		got := NewMCPExtractor(pt).Extract(text)
		require.Len(t, got, 2)
		assert.Equal(t, "Tool synergy between search and edit", got[0].Text)
		assert.Equal(t, OptimizationChaining, got[0].Type)
		assert.Equal(t, OptimizationBatching, got[1].Type)
	})
}

func TestExtractAll(t *testing.T) {
	pt := NewPatternTable()

	t.Run("agent module", func(t *testing.T) {
		e := ExtractAll(pt, agentModule)
		require.Len(t, e.YAMLBlocks, 1)
		assert.Equal(t, "Agent Mandatory Config:", e.YAMLBlocks[0].Context)

		var percentages []string
		for _, target := range e.Targets {
			percentages = append(percentages, target.Percentage)
		}
		assert.Contains(t, percentages, "95")
	})

	t.Run("crlf line endings", func(t *testing.T) {
		crlf := strings.ReplaceAll(agentModule, "\n", "\r\n")
		e := ExtractAll(pt, crlf)
		require.Len(t, e.YAMLBlocks, 1)
		assert.Equal(t, "agent_enforcement:\n  mandatory: true\n  compliance_target: 95", e.YAMLBlocks[0].Content)
		assert.Equal(t, ExtractAll(pt, agentModule), e)
	})

	t.Run("plain prose extracts nothing", func(t *testing.T) {
		e := ExtractAll(pt, "The team meets weekly to discuss progress. Notes are shared afterwards.")
		assert.True(t, e.Empty())
		assert.Empty(t, e.YAMLBlocks)
		assert.Empty(t, e.Targets)
		assert.Empty(t, e.Enforcement)
		assert.Empty(t, e.Decisions)
		assert.Empty(t, e.Code)
		assert.Empty(t, e.MCP)
	})
}
