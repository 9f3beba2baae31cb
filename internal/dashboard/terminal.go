// Package dashboard renders the churn summary in a terminal and over HTTP.
package dashboard

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/KaramelBytes/churnlens/internal/analysis"
	"github.com/charmbracelet/lipgloss"
)

var (
	colorRetained = lipgloss.Color("#4db6ac")
	colorChurned  = lipgloss.Color("#e57373")
	colorMuted    = lipgloss.Color("#8a93a3")
	colorAccent   = lipgloss.Color("#8BC34A")
)

// Styles holds the lipgloss styles used by the terminal renderer.
type Styles struct {
	Title    lipgloss.Style
	Section  lipgloss.Style
	KPIBox   lipgloss.Style
	KPILabel lipgloss.Style
	KPIValue lipgloss.Style
	Retained lipgloss.Style
	Churned  lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style
}

// DefaultStyles returns the dashboard palette.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
		Section:  lipgloss.NewStyle().Bold(true).Underline(true).MarginTop(1),
		KPIBox:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorMuted).Padding(0, 1).Width(22),
		KPILabel: lipgloss.NewStyle().Foreground(colorMuted),
		KPIValue: lipgloss.NewStyle().Bold(true),
		Retained: lipgloss.NewStyle().Foreground(colorRetained),
		Churned:  lipgloss.NewStyle().Foreground(colorChurned),
		Muted:    lipgloss.NewStyle().Foreground(colorMuted),
		Bold:     lipgloss.NewStyle().Bold(true),
	}
}

// TerminalOptions controls the terminal layout.
type TerminalOptions struct {
	// BarWidth is the width of the longest bar in a chart.
	BarWidth int
	// PreviewRows caps the raw data table; 0 hides it.
	PreviewRows int
}

// WriteTerminal renders the dashboard to w.
func WriteTerminal(w io.Writer, s *analysis.Summary, opt TerminalOptions) error {
	_, err := io.WriteString(w, RenderTerminal(s, DefaultStyles(), opt))
	return err
}

// RenderTerminal lays out the dashboard as styled text.
func RenderTerminal(s *analysis.Summary, st Styles, opt TerminalOptions) string {
	if opt.BarWidth <= 0 {
		opt.BarWidth = 40
	}
	var b strings.Builder
	b.WriteString(st.Title.Render("Customer Churn Analytics Dashboard"))
	b.WriteString("\n")
	if s.Name != "" {
		b.WriteString(st.Muted.Render(s.Name))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(kpiRow(s.KPIs, st))
	b.WriteString("\n")

	if len(s.Findings) > 0 {
		b.WriteString(st.Section.Render("Key Findings"))
		b.WriteString("\n")
		for i, f := range s.Findings {
			fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, st.Bold.Render(f.Title), f.Detail)
		}
	}

	b.WriteString(st.Section.Render("Churn by Satisfaction Score"))
	b.WriteString("\n")
	b.WriteString(groupBars(s.BySatisfaction, st, opt.BarWidth))

	b.WriteString(st.Section.Render("Churn by Contract Type"))
	b.WriteString("\n")
	b.WriteString(groupBars(s.ByContract, st, opt.BarWidth))

	b.WriteString(st.Section.Render("CLTV Distribution"))
	b.WriteString("\n")
	b.WriteString(histogramBars(s.CLTVHistogram, st, opt.BarWidth))

	b.WriteString(st.Section.Render("Data Usage vs Monthly Charges"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s customers, r=%.3f\n", analysis.FormatCount(len(s.Scatter)), s.UsageChargeR)
	for _, p := range topTicketHolders(s.Scatter, 5) {
		fmt.Fprintf(&b, "  %-12s %6.1f GB  %s  %d tickets  churn=%s\n",
			p.CustomerID, p.DataUsageGB, analysis.FormatMoney(p.MonthlyCharges), p.Tickets, p.Churn)
	}

	if n := min(opt.PreviewRows, len(s.Head)); n > 0 {
		b.WriteString(st.Section.Render(fmt.Sprintf("Raw Data Preview (first %d rows)", n)))
		b.WriteString("\n")
		b.WriteString(simpleTable(s.Header, s.Head[:n], st))
	}
	return b.String()
}

func kpiRow(k analysis.KPIs, st Styles) string {
	box := func(label, value string) string {
		return st.KPIBox.Render(st.KPILabel.Render(label) + "\n" + st.KPIValue.Render(value))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		box("Total Customers", analysis.FormatCount(k.Total)),
		box("Churn Rate", analysis.FormatPercent(k.ChurnRate)),
		box("Avg Satisfaction", analysis.FormatScore(k.AvgSatisfaction)),
		box("Avg CLTV", analysis.FormatMoney(k.AvgCLTV)),
	)
}

// pivot folds (key, churn) counts into per-key retained/churned pairs,
// keeping the first-seen key order.
func pivot(groups []analysis.GroupCount) ([]string, map[string][2]int) {
	var keys []string
	m := map[string][2]int{}
	for _, g := range groups {
		v, seen := m[g.Key]
		if !seen {
			keys = append(keys, g.Key)
		}
		if g.Churn == "Yes" {
			v[1] += g.Count
		} else {
			v[0] += g.Count
		}
		m[g.Key] = v
	}
	return keys, m
}

func bar(n, peak, width int) string {
	if peak <= 0 || n <= 0 {
		return ""
	}
	w := n * width / peak
	if w == 0 {
		w = 1
	}
	return strings.Repeat("█", w)
}

func groupBars(groups []analysis.GroupCount, st Styles, width int) string {
	keys, m := pivot(groups)
	peak, keyWidth := 0, 0
	for _, k := range keys {
		peak = max(peak, m[k][0], m[k][1])
		keyWidth = max(keyWidth, len(k))
	}
	var b strings.Builder
	for _, k := range keys {
		v := m[k]
		fmt.Fprintf(&b, "%-*s No  %s %d\n", keyWidth, k, st.Retained.Render(bar(v[0], peak, width)), v[0])
		fmt.Fprintf(&b, "%-*s Yes %s %d\n", keyWidth, "", st.Churned.Render(bar(v[1], peak, width)), v[1])
	}
	return b.String()
}

func histogramBars(h analysis.Histogram, st Styles, width int) string {
	peak := 0
	for _, bin := range h.Bins {
		peak = max(peak, bin.Yes+bin.No)
	}
	half := width / 2
	var b strings.Builder
	for _, bin := range h.Bins {
		fmt.Fprintf(&b, "%10.2f-%-10.2f %s%s %d/%d\n", bin.Lo, bin.Hi,
			st.Retained.Render(bar(bin.No, peak, half)),
			st.Churned.Render(bar(bin.Yes, peak, half)),
			bin.No, bin.Yes)
	}
	b.WriteString(st.Muted.Render("legend: "))
	b.WriteString(st.Retained.Render("█ No"))
	b.WriteString(" ")
	b.WriteString(st.Churned.Render("█ Yes"))
	b.WriteString("\n")
	return b.String()
}

// PreviewTable renders rows under header as an aligned plain table.
func PreviewTable(header []string, rows [][]string) string {
	return simpleTable(header, rows, DefaultStyles())
}

// topTicketHolders returns the points with the most support tickets.
func topTicketHolders(points []analysis.ScatterPoint, n int) []analysis.ScatterPoint {
	out := append([]analysis.ScatterPoint(nil), points...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Tickets > out[j].Tickets })
	return out[:min(n, len(out))]
}

func simpleTable(header []string, rows [][]string, st Styles) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}
	headerStyle := st.Bold.Padding(0, 1)
	rowStyle := lipgloss.NewStyle().Padding(0, 1)
	sep := st.Muted.Render("|")

	var b strings.Builder
	total := len(header) - 1
	for i, h := range header {
		total += widths[i] + 2
		b.WriteString(headerStyle.Width(widths[i] + 2).Render(h))
		if i < len(header)-1 {
			b.WriteString(sep)
		}
	}
	b.WriteString("\n")
	b.WriteString(st.Muted.Render(strings.Repeat("-", total)))
	b.WriteString("\n")
	for _, row := range rows {
		for i, cell := range row {
			b.WriteString(rowStyle.Width(widths[i] + 2).Render(cell))
			if i < len(row)-1 {
				b.WriteString(sep)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
