package compression

import (
	"regexp"
	"strings"
)

// keywordRule maps any of a set of lowercase keywords to a tag. Rules are
// evaluated in order; the first rule with a matching keyword wins.
type keywordRule[T any] struct {
	keywords []string
	tag      T
}

// firstMatch returns the tag of the first rule whose keywords occur in text,
// or fallback.
func firstMatch[T any](text string, rules []keywordRule[T], fallback T) T {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.tag
			}
		}
	}
	return fallback
}

// ClassifyTarget returns the policy category of a compliance target, judged
// from the line it appears on.
func ClassifyTarget(text string) TargetCategory {
	return firstMatch(text, []keywordRule[TargetCategory]{
		{keywords: []string{"agent"}, tag: TargetAgentMandatory},
		{keywords: []string{"parallel"}, tag: TargetParallelExecution},
		{keywords: []string{"research"}, tag: TargetResearchProtocol},
		{keywords: []string{"batch"}, tag: TargetBatchingOptimization},
		{keywords: []string{"threshold"}, tag: TargetThreshold},
	}, TargetGeneral)
}

// ClassifyEnforcement returns the rule type of an enforcement pattern.
func ClassifyEnforcement(text string) EnforcementType {
	return firstMatch(text, []keywordRule[EnforcementType]{
		{keywords: []string{"access", "permission", "firewall", "guard", "block", "deny"}, tag: EnforcementAccessControl},
		{keywords: []string{"monitor", "track", "audit", "metric"}, tag: EnforcementMonitoring},
		{keywords: []string{"protocol", "procedure", "workflow"}, tag: EnforcementProtocol},
		{keywords: []string{"config", "setting", "parameter"}, tag: EnforcementConfiguration},
	}, EnforcementGeneric)
}

// InferRulePriority infers the urgency of a rule from its wording.
func InferRulePriority(text string) RulePriority {
	return firstMatch(text, []keywordRule[RulePriority]{
		{keywords: []string{"critical", "mandatory", "must", "required"}, tag: RulePriorityHigh},
		{keywords: []string{"should", "recommended"}, tag: RulePriorityMedium},
	}, RulePriorityLow)
}

// ClassifyDecision returns the type of a decision step.
func ClassifyDecision(text string) DecisionType {
	return firstMatch(text, []keywordRule[DecisionType]{
		{keywords: []string{"if ", "when ", "unless", "otherwise"}, tag: DecisionConditional},
		{keywords: []string{"validat", "verify", "check", "ensure", "confirm"}, tag: DecisionValidation},
	}, DecisionProcedural)
}

// ClassifyOptimization returns the type of an MCP optimization pattern.
func ClassifyOptimization(text string) OptimizationType {
	return firstMatch(text, []keywordRule[OptimizationType]{
		{keywords: []string{"batch"}, tag: OptimizationBatching},
		{keywords: []string{"parallel", "concurren"}, tag: OptimizationParallel},
		{keywords: []string{"chain", "synerg"}, tag: OptimizationChaining},
		{keywords: []string{"mcp__", "tool call", "invoke"}, tag: OptimizationToolInvocation},
		{keywords: []string{"workflow", "template"}, tag: OptimizationWorkflow},
		{keywords: []string{"efficien", "faster", "reduction", "savings"}, tag: OptimizationEfficiency},
	}, OptimizationGeneric)
}

// Configuration ID categories.
const (
	ConfigAgentMandatory      = "agent-mandatory"
	ConfigParallelExecution   = "parallel-execution"
	ConfigResearchProtocol    = "research-protocol"
	ConfigTokenBudget         = "token-budget"
	ConfigMCPOptimization     = "mcp-optimization"
	ConfigValidationFramework = "validation-framework"
	ConfigContextManagement   = "context-management"
	ConfigGeneral             = "general"
)

var configIDPrefix = regexp.MustCompile(`^[A-Za-z]+`)

// ClassifyConfigID maps the alphabetic prefix of a configuration ID such as
// "AG001" to its category. Unknown prefixes map to "general".
func ClassifyConfigID(id string) string {
	switch strings.ToUpper(configIDPrefix.FindString(strings.TrimSpace(id))) {
	case "AG":
		return ConfigAgentMandatory
	case "PE":
		return ConfigParallelExecution
	case "RP":
		return ConfigResearchProtocol
	case "TB":
		return ConfigTokenBudget
	case "MCP":
		return ConfigMCPOptimization
	case "VF":
		return ConfigValidationFramework
	case "CM":
		return ConfigContextManagement
	default:
		return ConfigGeneral
	}
}
