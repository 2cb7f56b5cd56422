package compression

import (
	"fmt"
	"strings"
)

// Priority is the declared importance of a knowledge module.
type Priority string

const (
	// PriorityCritical modules are always compressed at the comprehensive level
	PriorityCritical Priority = "critical"
	// PriorityHigh modules favour the standard level
	PriorityHigh Priority = "high"
	// PriorityMedium is the default priority
	PriorityMedium Priority = "medium"
	// PriorityLow modules are compressed on size alone
	PriorityLow Priority = "low"
)

// DefaultCategory is applied to modules that declare no category.
const DefaultCategory = "general"

// ParsePriority parses a priority name. Unknown or empty names fall back to
// PriorityMedium and report ok=false.
func ParsePriority(s string) (Priority, bool) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return p, true
	default:
		return PriorityMedium, false
	}
}

// Level is a compression level controlling how aggressively extracted
// elements are filtered and truncated.
type Level string

const (
	// LevelDeployment is the most aggressive level
	LevelDeployment Level = "deployment"
	// LevelMinimal keeps one configuration block per context plus target percentages
	LevelMinimal Level = "minimal"
	// LevelStandard is the balanced default
	LevelStandard Level = "standard"
	// LevelComprehensive currently renders the same output as LevelStandard
	LevelComprehensive Level = "comprehensive"
)

// Levels returns all compression levels from most to least aggressive.
func Levels() []Level {
	return []Level{LevelDeployment, LevelMinimal, LevelStandard, LevelComprehensive}
}

// ParseLevel parses a level name.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelDeployment, LevelMinimal, LevelStandard, LevelComprehensive:
		return l, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLevel, s)
	}
}

// Mode is the deployment mode of an installation run.
type Mode string

const (
	// ModeInstall lets the level selector decide per module
	ModeInstall Mode = "install"
	// ModeDeployment forces the deployment level for every module
	ModeDeployment Mode = "deployment"
)

// ParseMode parses a mode name; the empty string means ModeInstall.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeInstall, nil
	case ModeInstall, ModeDeployment:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Module is a named unit of knowledge text.
type Module struct {
	Name     string   `json:"name"`
	Content  string   `json:"content"`
	Priority Priority `json:"priority,omitempty"`
	Category string   `json:"category,omitempty"`
}

// Normalize returns a copy of the module with defaults applied and CRLF line
// endings converted to LF.
func (m Module) Normalize() Module {
	m.Content = strings.ReplaceAll(m.Content, "\r\n", "\n")
	p, _ := ParsePriority(string(m.Priority))
	m.Priority = p
	m.Category = strings.TrimSpace(m.Category)
	if m.Category == "" {
		m.Category = DefaultCategory
	}
	return m
}

// YAMLBlock is a fenced configuration block. Content is kept byte-for-byte.
type YAMLBlock struct {
	Content string `json:"content"`
	// Context is the bold label immediately preceding the block, or "" when
	// the block has no label.
	Context string `json:"context,omitempty"`
}

// HasContext reports whether the block carries a label.
func (b YAMLBlock) HasContext() bool {
	return b.Context != ""
}

// TargetCategory is the policy category of a compliance target.
type TargetCategory string

const (
	TargetAgentMandatory       TargetCategory = "agent-mandatory"
	TargetParallelExecution    TargetCategory = "parallel-execution"
	TargetResearchProtocol     TargetCategory = "research-protocol"
	TargetBatchingOptimization TargetCategory = "batching-optimization"
	TargetThreshold            TargetCategory = "threshold"
	TargetGeneral              TargetCategory = "general"
)

// ComplianceTarget is a textual assertion of a required percentage or threshold.
type ComplianceTarget struct {
	Text string `json:"text"`
	// Percentage is the numeric part without the percent sign, "" when the
	// phrase carries no percentage.
	Percentage string         `json:"percentage,omitempty"`
	Category   TargetCategory `json:"category"`
}

// EnforcementType tags what kind of rule an enforcement pattern represents.
type EnforcementType string

const (
	EnforcementAccessControl EnforcementType = "access-control"
	EnforcementMonitoring    EnforcementType = "monitoring"
	EnforcementProtocol      EnforcementType = "protocol"
	EnforcementConfiguration EnforcementType = "configuration"
	EnforcementGeneric       EnforcementType = "enforcement"
)

// RulePriority is the inferred urgency of an enforcement pattern.
type RulePriority string

const (
	RulePriorityHigh   RulePriority = "high"
	RulePriorityMedium RulePriority = "medium"
	RulePriorityLow    RulePriority = "low"
)

// EnforcementPattern is a rule describing a mandatory behaviour, guard or protocol.
type EnforcementPattern struct {
	Text     string          `json:"text"`
	Type     EnforcementType `json:"type"`
	HasYAML  bool            `json:"has_yaml"`
	Priority RulePriority    `json:"priority"`
}

// DecisionType tags a decision procedure step.
type DecisionType string

const (
	DecisionConditional DecisionType = "conditional"
	DecisionValidation  DecisionType = "validation"
	DecisionProcedural  DecisionType = "procedural"
)

// DecisionTree is a numbered, bold-led procedural step.
type DecisionTree struct {
	Text string       `json:"text"`
	Type DecisionType `json:"type"`
}

// CodePattern is a fenced code block captured verbatim.
type CodePattern struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// OptimizationType tags an MCP optimization pattern.
type OptimizationType string

const (
	OptimizationBatching       OptimizationType = "batching"
	OptimizationParallel       OptimizationType = "parallel"
	OptimizationChaining       OptimizationType = "chaining"
	OptimizationToolInvocation OptimizationType = "tool-invocation"
	OptimizationWorkflow       OptimizationType = "workflow"
	OptimizationEfficiency     OptimizationType = "efficiency"
	OptimizationGeneric        OptimizationType = "optimization"
)

// MCPPattern is an optimization-related capture. Efficiency is the parsed
// efficiency percentage, 0 when the capture states none.
type MCPPattern struct {
	Text       string           `json:"text"`
	Type       OptimizationType `json:"type"`
	Efficiency int              `json:"efficiency,omitempty"`
}

// Elements is the full set of structured elements extracted from one module.
type Elements struct {
	YAMLBlocks  []YAMLBlock          `json:"yaml_blocks,omitempty"`
	Targets     []ComplianceTarget   `json:"targets,omitempty"`
	Enforcement []EnforcementPattern `json:"enforcement,omitempty"`
	Decisions   []DecisionTree       `json:"decisions,omitempty"`
	Code        []CodePattern        `json:"code,omitempty"`
	MCP         []MCPPattern         `json:"mcp,omitempty"`
}

// Total returns the number of extracted elements of every kind.
func (e Elements) Total() int {
	return len(e.YAMLBlocks) + len(e.Targets) + len(e.Enforcement) +
		len(e.Decisions) + len(e.Code) + len(e.MCP)
}

// Empty reports whether nothing at all was extracted.
func (e Elements) Empty() bool {
	return e.Total() == 0
}

// PercentageTargets counts targets that carry a percentage.
func (e Elements) PercentageTargets() int {
	n := 0
	for _, t := range e.Targets {
		if t.Percentage != "" {
			n++
		}
	}
	return n
}

// countMCP counts MCP patterns matching the predicate.
func (e Elements) countMCP(match func(MCPPattern) bool) int {
	n := 0
	for _, p := range e.MCP {
		if match(p) {
			n++
		}
	}
	return n
}

// BatchingPatterns counts MCP patterns classified as batching.
func (e Elements) BatchingPatterns() int {
	return e.countMCP(func(p MCPPattern) bool { return p.Type == OptimizationBatching })
}

// Result is the outcome of compressing one module.
type Result struct {
	ModuleName string `json:"module"`
	Level      Level  `json:"level"`
	// Summary is the rendered summary without the preservation annotation
	Summary string `json:"summary"`
	// Content is Summary followed by the annotation line, or "" when the
	// summary is empty
	Content        string              `json:"content"`
	Report         *PreservationReport `json:"report"`
	OriginalSize   int                 `json:"original_size"`
	CompressedSize int                 `json:"compressed_size"`
}
