package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/flashdeck/internal/model"
)

var (
	knewBarStyle      = lipgloss.NewStyle().Foreground(ColorGreen).Background(ColorGreen)
	didntKnowBarStyle = lipgloss.NewStyle().Foreground(ColorRed).Background(ColorRed)
	emptyBarStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Background(lipgloss.Color("240"))
)

// StatsModal charts knew / didn't know judgments per day for one deck.
type StatsModal struct {
	name string
	rows []model.DailyJudgments
}

// NewStatsModal creates the statistics modal. rows are oldest first.
func NewStatsModal(name string, rows []model.DailyJudgments) *StatsModal {
	return &StatsModal{name: name, rows: rows}
}

func (m *StatsModal) ID() string { return "stats" }

func (m *StatsModal) Update(msg tea.Msg) (bool, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "esc", "q", "s", "enter":
			return true, nil
		}
	}
	return false, nil
}

func (m *StatsModal) totals() (knew, didntKnow int64) {
	for _, r := range m.rows {
		knew += r.Knew
		didntKnow += r.DidntKnow
	}
	return knew, didntKnow
}

func (m *StatsModal) View(width, height int) string {
	title := fmt.Sprintf("Statistics: %s", m.name)
	status := []string{"ESC: Close"}

	knew, didntKnow := m.totals()
	if knew+didntKnow == 0 {
		return renderModalFrame(title, mutedStyle.Render("No judgments recorded in this period."), status, width, height, 60)
	}

	chartWidth := min(max(width-16, 20), 2*len(m.rows)+2)
	chartHeight := min(max(height-14, 5), 15)
	chart := m.renderChart(chartWidth, chartHeight)

	var b strings.Builder
	b.WriteString(chart)
	b.WriteString("\n")
	b.WriteString(m.axisLabels(chartWidth))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(ColorGreen).Render("■"))
	fmt.Fprintf(&b, " knew %d   ", knew)
	b.WriteString(lipgloss.NewStyle().Foreground(ColorRed).Render("■"))
	fmt.Fprintf(&b, " didn't know %d", didntKnow)
	if total := knew + didntKnow; total > 0 {
		fmt.Fprintf(&b, "   (%d%% known)", knew*100/total)
	}

	return renderModalFrame(title, b.String(), status, width, height, max(chartWidth, 50))
}

// renderChart draws one stacked bar per day, most recent day on the right.
func (m *StatsModal) renderChart(width, height int) string {
	bc := barchart.New(width, height,
		barchart.WithBarGap(1),
		barchart.WithBarWidth(1),
		barchart.WithNoAxis(),
	)

	for _, r := range m.visibleRows(width) {
		var values []barchart.BarValue
		if r.Knew > 0 {
			values = append(values, barchart.BarValue{Name: "knew", Value: float64(r.Knew), Style: knewBarStyle})
		}
		if r.DidntKnow > 0 {
			values = append(values, barchart.BarValue{Name: "didnt_know", Value: float64(r.DidntKnow), Style: didntKnowBarStyle})
		}
		if len(values) == 0 {
			values = append(values, barchart.BarValue{Name: "empty", Value: 0, Style: emptyBarStyle})
		}
		bc.Push(barchart.BarData{Label: "", Values: values})
	}

	bc.Draw()
	return bc.View()
}

// visibleRows drops the oldest days that do not fit in width.
func (m *StatsModal) visibleRows(width int) []model.DailyJudgments {
	maxBars := (width + 1) / 2
	if len(m.rows) > maxBars {
		return m.rows[len(m.rows)-maxBars:]
	}
	return m.rows
}

// axisLabels marks the first and last day under the chart.
func (m *StatsModal) axisLabels(width int) string {
	rows := m.visibleRows(width)
	if len(rows) == 0 {
		return ""
	}
	first := rows[0].Day.Format("Jan 2")
	last := rows[len(rows)-1].Day.Format("Jan 2")
	gap := width - lipgloss.Width(first) - lipgloss.Width(last)
	if gap < 1 {
		return mutedStyle.Render(last)
	}
	return mutedStyle.Render(first + strings.Repeat(" ", gap) + last)
}
