package analysis

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/KaramelBytes/churnlens/internal/dataset"
)

// ProfileOptions controls the column profile.
type ProfileOptions struct {
	// SampleRows determines how many leading rows to include in the report.
	SampleRows int
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// TopValues caps the categories listed per categorical column.
	TopValues int
}

// DefaultProfileOptions returns reasonable defaults for a churn table.
func DefaultProfileOptions() ProfileOptions {
	return ProfileOptions{SampleRows: 5, Correlations: true, TopValues: 5}
}

// Report is a markdown-friendly column profile of a table.
type Report struct {
	Name     string
	Rows     int
	Cols     []ColumnSummary
	Samples  [][]string
	Warnings []string
	Corr     *CorrMatrix
}

// ColumnSummary captures inferred type and statistics per column.
type ColumnSummary struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"` // numeric|categorical|identifier|empty
	NonNull int    `json:"non_null"`
	Missing int    `json:"missing"`
	Unique  int    `json:"unique"`
	// Numeric stats
	Min  float64 `json:"min,omitempty"`
	Max  float64 `json:"max,omitempty"`
	Mean float64 `json:"mean,omitempty"`
	Std  float64 `json:"std,omitempty"`
	// Categorical top values
	TopValues []CategoryCount `json:"top_values,omitempty"`
}

type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// AnalyzeCSV profiles a CSV or TSV file.
func AnalyzeCSV(path string, opt ProfileOptions) (*Report, error) {
	t, err := dataset.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	rep := Profile(t, opt)
	rep.Name = filepath.Base(path)
	if t.Encoding != "" && t.Encoding != "utf-8" {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("decoded from %s", t.Encoding))
	}
	return rep, nil
}

// colAcc accumulates one column in a single pass.
type colAcc struct {
	name   string
	nonNil int
	miss   int
	// numeric stats via Welford
	n    int
	mean float64
	m2   float64
	min  float64
	max  float64
	cats map[string]int
}

func (c *colAcc) add(v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		c.miss++
		return
	}
	c.nonNil++
	c.cats[v]++
	x, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
		return
	}
	c.n++
	d := x - c.mean
	c.mean += d / float64(c.n)
	c.m2 += d * (x - c.mean)
	if x < c.min {
		c.min = x
	}
	if x > c.max {
		c.max = x
	}
}

func (c *colAcc) numeric() bool { return c.n > 0 && c.n == c.nonNil }

func (c *colAcc) summary(top int) ColumnSummary {
	cs := ColumnSummary{Name: c.name, NonNull: c.nonNil, Missing: c.miss, Unique: len(c.cats)}
	switch {
	case c.nonNil == 0:
		cs.Kind = "empty"
	case c.numeric():
		cs.Kind = "numeric"
		cs.Min, cs.Max, cs.Mean = c.min, c.max, c.mean
		if c.n > 1 {
			cs.Std = math.Sqrt(c.m2 / float64(c.n-1))
		}
	case len(c.cats) == c.nonNil && c.nonNil > 1:
		cs.Kind = "identifier"
	default:
		cs.Kind = "categorical"
		cs.TopValues = topValues(c.cats, top)
	}
	return cs
}

// topValues returns the most frequent values, ties broken by value.
func topValues(cats map[string]int, k int) []CategoryCount {
	out := make([]CategoryCount, 0, len(cats))
	for v, n := range cats {
		out = append(out, CategoryCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Value < out[j].Value
		}
		return out[i].Count > out[j].Count
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// pairAcc holds exact pairwise sums over rows where both values parse.
type pairAcc struct {
	n, sx, sy, sxx, syy, sxy float64
}

func (p *pairAcc) add(x, y float64) {
	p.n++
	p.sx += x
	p.sy += y
	p.sxx += x * x
	p.syy += y * y
	p.sxy += x * y
}

func (p *pairAcc) r() float64 {
	if p.n < 2 {
		return math.NaN()
	}
	cov := p.sxy - p.sx*p.sy/p.n
	vx := p.sxx - p.sx*p.sx/p.n
	vy := p.syy - p.sy*p.sy/p.n
	if vx <= 0 || vy <= 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(vx*vy)
}

// Profile computes the column profile of an in-memory table.
func Profile(t *dataset.Table, opt ProfileOptions) *Report {
	rep := &Report{Rows: len(t.Rows)}
	cols := make([]*colAcc, len(t.Header))
	for i, h := range t.Header {
		cols[i] = &colAcc{name: strings.TrimSpace(h), min: math.Inf(1), max: math.Inf(-1), cats: map[string]int{}}
	}
	for _, row := range t.Rows {
		for i, v := range row {
			cols[i].add(v)
		}
	}
	for _, c := range cols {
		rep.Cols = append(rep.Cols, c.summary(opt.TopValues))
	}
	if opt.SampleRows > 0 {
		n := min(opt.SampleRows, len(t.Rows))
		rep.Samples = t.Rows[:n]
	}
	if opt.Correlations {
		rep.Corr = correlate(t, cols)
	}
	return rep
}

func correlate(t *dataset.Table, cols []*colAcc) *CorrMatrix {
	var idx []int
	for i, c := range cols {
		if c.numeric() {
			idx = append(idx, i)
		}
	}
	if len(idx) < 2 {
		return nil
	}
	k := len(idx)
	acc := make([][]pairAcc, k)
	for i := range acc {
		acc[i] = make([]pairAcc, k)
	}
	vals := make([]float64, k)
	ok := make([]bool, k)
	for _, row := range t.Rows {
		for j, ci := range idx {
			x, err := strconv.ParseFloat(strings.TrimSpace(row[ci]), 64)
			vals[j], ok[j] = x, err == nil
		}
		for a := 0; a < k; a++ {
			if !ok[a] {
				continue
			}
			for b := a + 1; b < k; b++ {
				if ok[b] {
					acc[a][b].add(vals[a], vals[b])
				}
			}
		}
	}
	m := &CorrMatrix{Values: make([][]float64, k)}
	for a, ci := range idx {
		m.Columns = append(m.Columns, cols[ci].name)
		m.Values[a] = make([]float64, k)
		m.Values[a][a] = 1
	}
	for a := 0; a < k; a++ {
		for b := a + 1; b < k; b++ {
			r := acc[a][b].r()
			m.Values[a][b], m.Values[b][a] = r, r
		}
	}
	return m
}

// Markdown renders a compact column profile.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		fmt.Fprintf(&b, "File: %s\n", r.Name)
	}
	fmt.Fprintf(&b, "Rows: %d\n", r.Rows)
	fmt.Fprintf(&b, "Columns: %d\n\n", len(r.Cols))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		missPct := 0.0
		if total := c.NonNull + c.Missing; total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		fmt.Fprintf(&b, "- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Kind, c.NonNull, missPct)
		switch c.Kind {
		case "numeric":
			fmt.Fprintf(&b, "; min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std)
		case "categorical":
			b.WriteString("; top: ")
			for i, kv := range c.TopValues {
				if i > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(&b, "%s(%d)", safeVal(kv.Value), kv.Count)
			}
			if c.Unique > len(c.TopValues) {
				fmt.Fprintf(&b, "; unique=%d", c.Unique)
			}
		case "identifier":
			fmt.Fprintf(&b, "; unique=%d", c.Unique)
		}
		b.WriteString("\n")
	}

	if r.Corr != nil {
		b.WriteString("\n[CORRELATIONS]\n")
		type pr struct {
			A, B string
			R    float64
		}
		var pairs []pr
		n := len(r.Corr.Columns)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if v := r.Corr.Values[i][j]; !math.IsNaN(v) {
					pairs = append(pairs, pr{A: r.Corr.Columns[i], B: r.Corr.Columns[j], R: v})
				}
			}
		}
		sort.Slice(pairs, func(i, j int) bool {
			ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
			if ai == aj {
				return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
			}
			return ai > aj
		})
		for i := 0; i < min(10, len(pairs)); i++ {
			fmt.Fprintf(&b, "- %s ~ %s: r=%.3f\n", pairs[i].A, pairs[i].B, pairs[i].R)
		}
	}

	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD ROWS]\n")
		header := make([]string, len(r.Cols))
		for i, c := range r.Cols {
			header[i] = c.Name
		}
		writeTable(&b, header, r.Samples)
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}

// writeTable renders a Markdown table.
func writeTable(b *strings.Builder, header []string, rows [][]string) {
	b.WriteString("| ")
	for i, h := range header {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(safeName(h))
	}
	b.WriteString(" |\n|")
	for range header {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString("| ")
		for i, v := range row {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeVal(v))
		}
		b.WriteString(" |\n")
	}
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return safeVal(s)
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
