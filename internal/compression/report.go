package compression

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ReportOptions configures RenderReport output.
type ReportOptions struct {
	// Color enables terminal styling
	Color bool

	// ShowContent appends the compressed content after the report
	ShowContent bool
}

// reportStyles are the lipgloss styles used by RenderReport. Without color
// every style renders plain text.
type reportStyles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	dim     lipgloss.Style
	good    lipgloss.Style
	warning lipgloss.Style
	bad     lipgloss.Style
}

func newReportStyles(color bool) reportStyles {
	if !color {
		plain := lipgloss.NewStyle()
		return reportStyles{title: plain, label: plain, value: plain, dim: plain, good: plain, warning: plain, bad: plain}
	}
	return reportStyles{
		title:   lipgloss.NewStyle().Foreground(lipgloss.Color("51")).Bold(true),
		label:   lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		value:   lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Bold(true),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		good:    lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true),
		bad:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
}

func (s reportStyles) quality(q Quality) lipgloss.Style {
	switch q {
	case QualityExcellent, QualityGood:
		return s.good
	case QualityAdequate, QualityMinimal:
		return s.warning
	default:
		return s.bad
	}
}

// RenderReport writes a human-readable preservation report for result.
func RenderReport(w io.Writer, result *Result, opts ReportOptions) error {
	if w == nil {
		return fmt.Errorf("writer cannot be nil")
	}
	if result == nil || result.Report == nil {
		return fmt.Errorf("result cannot be nil")
	}

	st := newReportStyles(opts.Color)
	r := result.Report
	m := r.Metrics

	b := &strings.Builder{}
	name := result.ModuleName
	if name == "" {
		name = "(unnamed)"
	}
	b.WriteString(st.title.Render("Preservation report: "+name) + "\n")

	row := func(label, value string) {
		fmt.Fprintf(b, "  %s %s\n", st.label.Render(fmt.Sprintf("%-10s", label+":")), value)
	}
	row("Level", st.value.Render(string(result.Level)))
	row("Score", st.quality(r.Quality).Render(fmt.Sprintf("%d/%d (%s)", r.Score, MaxPreservationScore, r.Quality)))
	valid := st.good.Render("yes")
	if !r.Valid {
		valid = st.bad.Render("no")
	}
	if r.MCPAware {
		valid += st.dim.Render(" (mcp-aware)")
	}
	row("Valid", valid)
	row("Size", fmt.Sprintf("%d -> %d chars %s", result.OriginalSize, result.CompressedSize,
		st.dim.Render(fmt.Sprintf("(%.1f%%)", ratio(result.CompressedSize, result.OriginalSize)))))
	row("Elements", fmt.Sprintf("yaml=%d targets=%d (%d with %%) rules=%d decisions=%d code=%d mcp=%d",
		m.YAMLBlocks, m.Targets, m.PercentageTargets, m.EnforcementRules, m.DecisionTrees, m.CodePatterns, m.MCPPatterns))

	if len(r.Recommendations) > 0 {
		b.WriteString(st.title.Render("Recommendations") + "\n")
		for _, rec := range r.Recommendations {
			b.WriteString("  - " + rec + "\n")
		}
	}

	if opts.ShowContent && result.Content != "" {
		b.WriteString("\n" + result.Content + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// ratio returns part as a percentage of whole, 0 when whole is 0.
func ratio(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
