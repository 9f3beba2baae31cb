package dashboard

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/KaramelBytes/churnlens/internal/analysis"
)

const (
	plotWidth  = 640
	plotHeight = 360
	plotPad    = 40
)

type kpiCard struct {
	Label, Value string
}

type barRow struct {
	Label   string
	No, Yes int
	// Percent widths relative to the largest count in the chart.
	NoPct, YesPct float64
}

type svgPoint struct {
	X, Y, R float64
	Churned bool
	Title   string
}

type pageData struct {
	Name         string
	KPIs         []kpiCard
	Findings     []analysis.Finding
	Satisfaction []barRow
	Contract     []barRow
	Histogram    []barRow
	Points       []svgPoint
	R            string
	Header       []string
	Head         [][]string
	PlotW, PlotH int
}

func newPageData(s *analysis.Summary) pageData {
	return pageData{
		Name: s.Name,
		KPIs: []kpiCard{
			{"Total Customers", analysis.FormatCount(s.KPIs.Total)},
			{"Churn Rate", analysis.FormatPercent(s.KPIs.ChurnRate)},
			{"Avg Satisfaction", analysis.FormatScore(s.KPIs.AvgSatisfaction)},
			{"Avg CLTV", analysis.FormatMoney(s.KPIs.AvgCLTV)},
		},
		Findings:     s.Findings,
		Satisfaction: groupRows(s.BySatisfaction),
		Contract:     groupRows(s.ByContract),
		Histogram:    histogramRows(s.CLTVHistogram),
		Points:       scatterPoints(s.Scatter),
		R:            fmt.Sprintf("%.3f", s.UsageChargeR),
		Header:       s.Header,
		Head:         s.Head,
		PlotW:        plotWidth,
		PlotH:        plotHeight,
	}
}

func scaleRows(rows []barRow) []barRow {
	peak := 0
	for _, r := range rows {
		peak = max(peak, r.No, r.Yes)
	}
	if peak == 0 {
		return rows
	}
	for i := range rows {
		rows[i].NoPct = float64(rows[i].No) * 100 / float64(peak)
		rows[i].YesPct = float64(rows[i].Yes) * 100 / float64(peak)
	}
	return rows
}

func groupRows(groups []analysis.GroupCount) []barRow {
	keys, m := pivot(groups)
	rows := make([]barRow, len(keys))
	for i, k := range keys {
		rows[i] = barRow{Label: k, No: m[k][0], Yes: m[k][1]}
	}
	return scaleRows(rows)
}

func histogramRows(h analysis.Histogram) []barRow {
	rows := make([]barRow, len(h.Bins))
	for i, b := range h.Bins {
		rows[i] = barRow{Label: fmt.Sprintf("%.0f-%.0f", b.Lo, b.Hi), No: b.No, Yes: b.Yes}
	}
	return scaleRows(rows)
}

func scatterPoints(points []analysis.ScatterPoint) []svgPoint {
	if len(points) == 0 {
		return nil
	}
	maxX, maxY, maxT := 0.0, 0.0, 0
	for _, p := range points {
		maxX = max(maxX, p.DataUsageGB)
		maxY = max(maxY, p.MonthlyCharges)
		maxT = max(maxT, p.Tickets)
	}
	maxX, maxY = max(maxX, 1), max(maxY, 1)
	w := float64(plotWidth - 2*plotPad)
	h := float64(plotHeight - 2*plotPad)
	out := make([]svgPoint, len(points))
	for i, p := range points {
		r := 2.0
		if maxT > 0 {
			r += 6 * float64(p.Tickets) / float64(maxT)
		}
		out[i] = svgPoint{
			X:       plotPad + p.DataUsageGB/maxX*w,
			Y:       plotPad + h - p.MonthlyCharges/maxY*h,
			R:       r,
			Churned: p.Churn == "Yes",
			Title: fmt.Sprintf("%s: %.1f GB, %s, %d tickets",
				p.CustomerID, p.DataUsageGB, analysis.FormatMoney(p.MonthlyCharges), p.Tickets),
		}
	}
	return out
}

func renderPage(s *analysis.Summary) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, newPageData(s)); err != nil {
		return nil, fmt.Errorf("render dashboard page: %w", err)
	}
	return buf.Bytes(), nil
}

var pageTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Customer Churn Analytics Dashboard</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; color: #101F38; background: #f4f5f6; }
h2 { margin-top: 2rem; }
.kpis { display: flex; gap: 1rem; }
.kpi { background: #fff; border: 1px solid #dce0e5; border-radius: 8px; padding: 1rem; min-width: 10rem; }
.kpi .label { color: #6b7280; font-size: .85rem; }
.kpi .value { font-size: 1.6rem; font-weight: 600; }
.bar { display: inline-block; height: .8rem; }
.no { background: #4db6ac; }
.yes { background: #e57373; }
table { border-collapse: collapse; background: #fff; font-size: .85rem; }
td, th { border: 1px solid #dce0e5; padding: .25rem .5rem; text-align: left; }
.chart td:nth-child(2) { width: 24rem; }
circle.no { fill: #4db6ac; fill-opacity: .5; }
circle.yes { fill: #e57373; fill-opacity: .6; }
</style>
</head>
<body>
<h1>Customer Churn Analytics Dashboard</h1>
{{with .Name}}<p>{{.}}</p>{{end}}
<div class="kpis">
{{range .KPIs}}<div class="kpi"><div class="label">{{.Label}}</div><div class="value">{{.Value}}</div></div>
{{end}}</div>

<h2>Key Findings</h2>
<ol>
{{range .Findings}}<li><strong>{{.Title}}</strong>: {{.Detail}}</li>
{{end}}</ol>

{{define "bars"}}<table class="chart">
<tr><th></th><th>Churn (<span class="bar no" style="width:.8rem"></span> No / <span class="bar yes" style="width:.8rem"></span> Yes)</th><th>No</th><th>Yes</th></tr>
{{range .}}<tr><td>{{.Label}}</td><td><span class="bar no" style="width:{{printf "%.1f" .NoPct}}%"></span><br><span class="bar yes" style="width:{{printf "%.1f" .YesPct}}%"></span></td><td>{{.No}}</td><td>{{.Yes}}</td></tr>
{{end}}</table>{{end}}

<h2>Churn by Satisfaction Score</h2>
{{template "bars" .Satisfaction}}

<h2>Churn by Contract Type</h2>
{{template "bars" .Contract}}

<h2>CLTV Distribution</h2>
{{template "bars" .Histogram}}

<h2>Data Usage vs Monthly Charges</h2>
<p>Point size is SupportTicketsLastMonth. r = {{.R}}</p>
<svg width="{{.PlotW}}" height="{{.PlotH}}" role="img" aria-label="scatter plot">
{{range .Points}}<circle class="{{if .Churned}}yes{{else}}no{{end}}" cx="{{printf "%.1f" .X}}" cy="{{printf "%.1f" .Y}}" r="{{printf "%.1f" .R}}"><title>{{.Title}}</title></circle>
{{end}}</svg>

<h2>Raw Data Preview (first {{len .Head}} rows)</h2>
<table>
<tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr>
{{range .Head}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</table>
</body>
</html>
`))
