package compression

import (
	"fmt"
	"strings"
)

// Quality is the qualitative preservation tier.
type Quality string

const (
	QualityExcellent    Quality = "excellent"
	QualityGood         Quality = "good"
	QualityAdequate     Quality = "adequate"
	QualityMinimal      Quality = "minimal"
	QualityInsufficient Quality = "insufficient"
)

// MaxPreservationScore is the upper bound of every preservation score.
const MaxPreservationScore = 100

// minValidElements is the number of extracted elements a report needs to be
// considered valid, whatever its score.
const minValidElements = 3

// PreservationMetrics holds the element counts a report is computed from.
type PreservationMetrics struct {
	YAMLBlocks        int `json:"yaml_blocks"`
	Targets           int `json:"targets"`
	PercentageTargets int `json:"percentage_targets"`
	EnforcementRules  int `json:"enforcement_rules"`
	DecisionTrees     int `json:"decision_trees"`
	CodePatterns      int `json:"code_patterns"`
	MCPPatterns       int `json:"mcp_patterns"`
	BatchingPatterns  int `json:"batching_patterns"`
	ToolInvocations   int `json:"tool_invocations"`
	EfficiencyClaims  int `json:"efficiency_claims"`
	Total             int `json:"total"`
}

// NewPreservationMetrics counts the elements of e.
func NewPreservationMetrics(e Elements) PreservationMetrics {
	return PreservationMetrics{
		YAMLBlocks:        len(e.YAMLBlocks),
		Targets:           len(e.Targets),
		PercentageTargets: e.PercentageTargets(),
		EnforcementRules:  len(e.Enforcement),
		DecisionTrees:     len(e.Decisions),
		CodePatterns:      len(e.Code),
		MCPPatterns:       len(e.MCP),
		BatchingPatterns:  e.BatchingPatterns(),
		ToolInvocations:   e.countMCP(func(p MCPPattern) bool { return p.Type == OptimizationToolInvocation }),
		EfficiencyClaims:  e.countMCP(func(p MCPPattern) bool { return p.Efficiency > 0 }),
		Total:             e.Total(),
	}
}

// PreservationReport scores how much structured content survived extraction.
// A report below its validity threshold is advisory only.
type PreservationReport struct {
	Score           int                 `json:"preservation_score"`
	Quality         Quality             `json:"quality"`
	Metrics         PreservationMetrics `json:"metrics"`
	Valid           bool                `json:"is_valid"`
	Recommendations []string            `json:"recommendations"`
	MCPAware        bool                `json:"mcp_aware,omitempty"`
}

// tierThresholds is the minimum score and feature counts for one tier.
type tierThresholds struct {
	quality       Quality
	minScore      int
	minConfig     int
	minPercentage int
	// needsEither requires at least one configuration block or one
	// percentage target instead of both floors.
	needsEither bool
}

// validator holds the weights and thresholds of one report variant.
type validator struct {
	validScore         int
	tiers              []tierThresholds
	maxRecommendations int
	mcpAware           bool
}

func genericValidator() validator {
	return validator{
		validScore: 30,
		tiers: []tierThresholds{
			{quality: QualityExcellent, minScore: 80, minConfig: 2, minPercentage: 3},
			{quality: QualityGood, minScore: 60, minConfig: 1, minPercentage: 2},
			{quality: QualityAdequate, minScore: 40, needsEither: true},
			{quality: QualityMinimal, minScore: 20},
		},
		maxRecommendations: 3,
	}
}

func mcpValidator() validator {
	return validator{
		validScore: 40,
		tiers: []tierThresholds{
			{quality: QualityExcellent, minScore: 85, minConfig: 3, minPercentage: 5},
			{quality: QualityGood, minScore: 65, minConfig: 2, minPercentage: 3},
			{quality: QualityAdequate, minScore: 45, needsEither: true},
			{quality: QualityMinimal, minScore: 25},
		},
		maxRecommendations: 2,
		mcpAware:           true,
	}
}

// Validate computes the generic preservation report for e.
func Validate(e Elements) *PreservationReport {
	return genericValidator().evaluate(e)
}

// ValidateMCP computes the MCP-aware preservation report for e. Batching
// patterns are weighted at 20 points each and replace the configuration
// block weight when present.
func ValidateMCP(e Elements) *PreservationReport {
	return mcpValidator().evaluate(e)
}

// ValidateFor picks the report variant for a module category: categories
// mentioning "mcp" get the MCP-aware report.
func ValidateFor(category string, e Elements) *PreservationReport {
	if strings.Contains(strings.ToLower(category), "mcp") {
		return ValidateMCP(e)
	}
	return Validate(e)
}

func (v validator) evaluate(e Elements) *PreservationReport {
	m := NewPreservationMetrics(e)
	score := v.score(m)
	return &PreservationReport{
		Score:           score,
		Quality:         v.quality(m, score),
		Metrics:         m,
		Valid:           m.Total >= minValidElements && score >= v.validScore,
		Recommendations: v.recommendations(m),
		MCPAware:        v.mcpAware,
	}
}

func (v validator) score(m PreservationMetrics) int {
	config := 15 * m.YAMLBlocks
	if v.mcpAware && m.BatchingPatterns > 0 {
		config = 20 * m.BatchingPatterns
	}
	score := config + 12*m.PercentageTargets + 8*m.EnforcementRules + 5*(m.DecisionTrees+m.CodePatterns)
	return min(score, MaxPreservationScore)
}

// configSignal is the configuration count compared against tier floors. The
// MCP-aware report counts batching patterns alongside configuration blocks.
func (v validator) configSignal(m PreservationMetrics) int {
	if v.mcpAware {
		return m.YAMLBlocks + m.BatchingPatterns
	}
	return m.YAMLBlocks
}

func (v validator) quality(m PreservationMetrics, score int) Quality {
	config := v.configSignal(m)
	for _, t := range v.tiers {
		if score < t.minScore {
			continue
		}
		if t.needsEither {
			if config >= 1 || m.PercentageTargets >= 1 {
				return t.quality
			}
			continue
		}
		if config >= t.minConfig && m.PercentageTargets >= t.minPercentage {
			return t.quality
		}
	}
	return QualityInsufficient
}

// recommendations lists feature-floor suggestions, MCP-specific ones first,
// capped at maxRecommendations.
func (v validator) recommendations(m PreservationMetrics) []string {
	var recs []string
	if v.mcpAware {
		if m.BatchingPatterns == 0 {
			recs = append(recs, "No batching patterns extracted: describe which tool calls are batched together")
		}
		if m.ToolInvocations == 0 {
			recs = append(recs, "No fully qualified tool identifiers extracted: reference tools as mcp__<server>__<tool>")
		}
		if m.EfficiencyClaims == 0 {
			recs = append(recs, "No efficiency percentages extracted: state expected gains as 75/80/85/90/95% efficiency")
		}
	}
	if m.YAMLBlocks < 2 {
		recs = append(recs, fmt.Sprintf("Only %d configuration block(s) extracted: fence settings as ```yaml blocks preceded by a **bold label**", m.YAMLBlocks))
	}
	if m.PercentageTargets < 3 {
		recs = append(recs, fmt.Sprintf("Only %d percentage target(s) extracted: state compliance targets explicitly, e.g. \"95%% compliance\"", m.PercentageTargets))
	}
	if m.EnforcementRules == 0 {
		recs = append(recs, "No enforcement rules extracted: label mandatory rules with **MANDATORY**, **ENFORCEMENT**, **GUARD** or **BLOCK**")
	}
	if m.DecisionTrees == 0 && m.YAMLBlocks >= 2 && m.PercentageTargets >= 3 {
		recs = append(recs, "No decision procedures extracted: write procedures as numbered steps with a bold lead")
	}

	if len(recs) > v.maxRecommendations {
		recs = recs[:v.maxRecommendations]
	}
	return recs
}

// Annotation renders the one-line preservation comment appended after a
// compressed module.
func (r *PreservationReport) Annotation() string {
	return fmt.Sprintf("<!-- preservation: score=%d quality=%s yaml=%d targets=%d rules=%d valid=%t -->",
		r.Score, r.Quality, r.Metrics.YAMLBlocks, r.Metrics.PercentageTargets, r.Metrics.EnforcementRules, r.Valid)
}
