// Package monitor renders a live terminal dashboard of assembly runs:
// preservation scores, size reduction and per-module quality, with history
// across rebuilds.
package monitor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	sparklineWidth  = 30
	sparklineHeight = 3
	historySize     = 30

	// maxModuleRows bounds the module table; the lowest scores are shown.
	maxModuleRows = 12
	keyWidth      = 28
)

// RebuildFunc runs one assembly and summarizes it.
type RebuildFunc func(ctx context.Context) (Snapshot, error)

// SnapshotMsg delivers a completed run to the dashboard. Watch loops send it
// through tea.Program.Send.
type SnapshotMsg Snapshot

// ErrMsg reports a failed run.
type ErrMsg struct{ Err error }

type tickMsg time.Time

// Model is the BubbleTea dashboard model.
type Model struct {
	rebuild    RebuildFunc
	started    time.Time
	now        time.Time
	lastUpdate time.Time
	snapshot   Snapshot
	runs       int
	building   bool
	err        error
	quitting   bool

	scoreHistory     []float64
	reductionHistory []float64

	scoreProgress  progress.Model
	moduleProgress progress.Model
}

// Lipgloss styles (k9s-inspired color scheme)
var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	healthyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))
)

// NewModel creates a dashboard that runs rebuild on start and on "r".
// A nil rebuild leaves the dashboard waiting for SnapshotMsg.
func NewModel(rebuild RebuildFunc) Model {
	now := time.Now()
	return Model{
		rebuild: rebuild,
		started: now,
		now:     now,
		scoreProgress: progress.New(
			progress.WithGradient("#ff0000", "#00ff00"),
			progress.WithWidth(40),
		),
		moduleProgress: progress.New(
			progress.WithGradient("#ff0000", "#00ff00"),
			progress.WithWidth(20),
			progress.WithoutPercentage(),
		),
		scoreHistory:     make([]float64, 0, historySize),
		reductionHistory: make([]float64, 0, historySize),
	}
}

// scoreBadge returns a colored badge for a preservation score, using the
// generic validator's good and adequate thresholds.
func scoreBadge(score float64) string {
	switch {
	case score >= 60:
		return healthyStyle.Render("[✓]")
	case score >= 40:
		return warningStyle.Render("[⚠]")
	default:
		return errorStyle.Render("[✗]")
	}
}

func statusBadge(s Snapshot) string {
	switch {
	case len(s.Modules) == 0:
		return dimStyle.Render("… WAITING")
	case s.Invalid() == 0:
		return healthyStyle.Render("✓ VALID")
	case s.Invalid() < len(s.Modules):
		return warningStyle.Render(fmt.Sprintf("⚠ %d INVALID", s.Invalid()))
	default:
		return errorStyle.Render("✗ ALL INVALID")
	}
}

// appendToHistory appends a value to history, maintaining max size
func appendToHistory(history []float64, value float64) []float64 {
	history = append(history, value)
	if len(history) > historySize {
		history = history[1:]
	}
	return history
}

// createSparkline creates a sparkline chart from historical data
func createSparkline(data []float64) string {
	if len(data) == 0 {
		return dimStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data"))
	}

	spark := sparkline.New(sparklineWidth, sparklineHeight)
	for _, v := range data {
		spark.Push(v)
	}
	spark.Draw()
	return sparklineStyle.Render(spark.View())
}

// Init starts the first rebuild and the clock.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.rebuildCmd(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) rebuildCmd() tea.Cmd {
	if m.rebuild == nil {
		return nil
	}
	rebuild := m.rebuild
	return func() tea.Msg {
		s, err := rebuild(context.Background())
		if err != nil {
			return ErrMsg{Err: err}
		}
		return SnapshotMsg(s)
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			if m.building || m.rebuild == nil {
				return m, nil
			}
			m.building = true
			return m, m.rebuildCmd()
		}

	case tickMsg:
		m.now = time.Time(msg)
		return m, tick()

	case SnapshotMsg:
		s := Snapshot(msg)
		m.snapshot = s
		m.scoreHistory = appendToHistory(m.scoreHistory, s.AverageScore())
		m.reductionHistory = appendToHistory(m.reductionHistory, s.Reduction()*100)
		m.runs++
		m.lastUpdate = s.Time
		if m.lastUpdate.IsZero() {
			m.lastUpdate = time.Now()
		}
		m.building = false
		m.err = nil
		return m, nil

	case ErrMsg:
		m.err = msg.Err
		m.building = false
		return m, nil
	}

	return m, nil
}

// View renders the dashboard
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return containerStyle.Render(m.renderHeader() + m.renderBody() + m.renderFooter())
}

func (m Model) renderHeader() string {
	lastUpdate := "Never"
	if !m.lastUpdate.IsZero() {
		lastUpdate = m.lastUpdate.Format("3:04:05 PM")
	}
	uptime := FormatDuration(int64(m.now.Sub(m.started).Seconds()))

	var b strings.Builder
	b.WriteString(headerStyle.Render(" guild Monitor ") + "\n")
	fmt.Fprintf(&b, "%s   %s %s   %s %s   %s",
		statusBadge(m.snapshot),
		dimStyle.Render("Uptime:"), valueStyle.Render(uptime),
		dimStyle.Render("Runs:"), valueStyle.Render(fmt.Sprint(m.runs)),
		dimStyle.Render(lastUpdate))
	if m.building {
		b.WriteString("   " + warningStyle.Render("rebuilding…"))
	}
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render("⚠ Last rebuild failed") + "\n")
		b.WriteString(dimStyle.Render("Error: ") + errorStyle.Render(m.err.Error()) + "\n")
	}
	return b.String()
}

func (m Model) renderBody() string {
	s := m.snapshot
	var b strings.Builder

	b.WriteString("\n" + sectionStyle.Render("┃ Assembly") + "\n")
	runID := s.RunID
	if runID == "" {
		runID = "-"
	}
	run := labelStyle.Render("  Run: ") + valueStyle.Render(runID)
	if s.Revision != "" {
		run += "  " + labelStyle.Render("Revision: ") + valueStyle.Render(s.Revision)
	}
	b.WriteString(run + "\n")
	b.WriteString(labelStyle.Render("  Documents: ") + valueStyle.Render(fmt.Sprint(s.Documents)) +
		"  " + labelStyle.Render("Modules: ") + valueStyle.Render(fmt.Sprint(len(s.Modules))) +
		"  " + labelStyle.Render("Missing: ") + valueStyle.Render(fmt.Sprint(s.Missing)) +
		"  " + labelStyle.Render("Redacted: ") + valueStyle.Render(fmt.Sprint(s.Redactions())) + "\n")

	avg := s.AverageScore()
	b.WriteString("\n" + sectionStyle.Render("┃ Preservation") + "\n")
	b.WriteString(labelStyle.Render("  Average: ") +
		valueStyle.Render(FormatScore(avg)) + " " + scoreBadge(avg) +
		"   " + createSparkline(m.scoreHistory) + "\n")
	b.WriteString(labelStyle.Render("  Score: ") + m.scoreProgress.ViewAs(clamp(avg/100)) + "\n")

	original, compressed := s.Sizes()
	b.WriteString("\n" + sectionStyle.Render("┃ Size") + "\n")
	b.WriteString(labelStyle.Render("  Total: ") +
		valueStyle.Render(FormatSize(original)) + dimStyle.Render(" -> ") + valueStyle.Render(FormatSize(compressed)) + "\n")
	b.WriteString(labelStyle.Render("  Reduction: ") +
		valueStyle.Render(FormatPercentage(s.Reduction())) +
		"   " + createSparkline(m.reductionHistory) + "\n")

	if len(s.Modules) > 0 {
		b.WriteString("\n" + sectionStyle.Render("┃ Modules") + "\n")
		rows := append([]ModuleStat(nil), s.Modules...)
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Score < rows[j].Score })
		if len(rows) > maxModuleRows {
			rows = rows[:maxModuleRows]
		}
		for _, r := range rows {
			fmt.Fprintf(&b, "  %s %s %s %s %s\n",
				labelStyle.Render(fmt.Sprintf("%-*s", keyWidth, truncate(r.Key, keyWidth))),
				m.moduleProgress.ViewAs(clamp(float64(r.Score)/100)),
				valueStyle.Render(fmt.Sprintf("%3d", r.Score)),
				scoreBadge(float64(r.Score)),
				dimStyle.Render(fmt.Sprintf("%s, %s", r.Level, r.Quality)))
		}
		if hidden := len(s.Modules) - len(rows); hidden > 0 {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  … %d more", hidden)) + "\n")
		}
	}
	return b.String()
}

func (m Model) renderFooter() string {
	footer := footerKeyStyle.Render("[q]") + footerStyle.Render(" quit  ")
	if m.rebuild != nil {
		footer += footerKeyStyle.Render("[r]") + footerStyle.Render(" rebuild  ")
	}
	return "\n" + footer
}

func clamp(ratio float64) float64 {
	switch {
	case ratio < 0:
		return 0
	case ratio > 1:
		return 1
	default:
		return ratio
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
