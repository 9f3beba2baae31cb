// Package analysis summarizes the enriched churn dataset for the dashboard
// and profiles arbitrary churn tables.
package analysis

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/KaramelBytes/churnlens/internal/dataset"
)

// Options controls the dashboard summary.
type Options struct {
	// PreviewRows is the number of leading rows shown verbatim; 0 shows none.
	PreviewRows int
	// HistogramBins is the number of equal-width CLTV bins.
	HistogramBins int
}

// DefaultOptions matches the published dashboard.
func DefaultOptions() Options {
	return Options{PreviewRows: 50, HistogramBins: 20}
}

// Summary is everything the dashboard renders. It is immutable once built.
type Summary struct {
	Name string `json:"name"`
	KPIs KPIs   `json:"kpis"`

	BySatisfaction []GroupCount    `json:"by_satisfaction"`
	ByContract     []GroupCount    `json:"by_contract"`
	Scatter        []ScatterPoint  `json:"scatter"`
	UsageChargeR   float64         `json:"usage_charge_r"`
	CLTVHistogram  Histogram       `json:"cltv_histogram"`
	Findings       []Finding       `json:"findings"`
	Columns        []ColumnSummary `json:"columns"`
	Header         []string        `json:"header"`
	Head           [][]string      `json:"head"`

	table *dataset.Table
}

// KPIs are the headline metrics.
type KPIs struct {
	Total           int     `json:"total_customers"`
	Churned         int     `json:"churned"`
	ChurnRate       float64 `json:"churn_rate"`
	AvgSatisfaction float64 `json:"avg_satisfaction"`
	AvgCLTV         float64 `json:"avg_cltv"`
}

// GroupCount is one cell of a (key, churn) count table.
type GroupCount struct {
	Key   string `json:"key"`
	Churn string `json:"churn"`
	Count int    `json:"count"`
}

// ScatterPoint is one customer in the usage vs charges plot.
type ScatterPoint struct {
	CustomerID     string  `json:"customer_id"`
	DataUsageGB    float64 `json:"data_usage_gb"`
	MonthlyCharges float64 `json:"monthly_charges"`
	Tickets        int     `json:"tickets"`
	Churn          string  `json:"churn"`
}

// Histogram splits CLTV into equal-width bins by churn flag.
type Histogram struct {
	Min   float64   `json:"min"`
	Max   float64   `json:"max"`
	Width float64   `json:"width"`
	Bins  []HistBin `json:"bins"`
}

type HistBin struct {
	Lo  float64 `json:"lo"`
	Hi  float64 `json:"hi"`
	Yes int     `json:"yes"`
	No  int     `json:"no"`
}

// Finding is one computed observation for the Key Findings panel.
type Finding struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// Load reads the enriched dataset at path and summarizes it. A missing file
// yields *MissingDerivedFileError.
func Load(path string, opt Options) (*Summary, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MissingDerivedFileError{Path: path}
		}
		return nil, fmt.Errorf("stat dataset: %w", err)
	}
	t, err := dataset.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	s, err := Summarize(t, opt)
	if err != nil {
		return nil, err
	}
	s.Name = filepath.Base(path)
	return s, nil
}

// row is the typed view of one enriched row.
type row struct {
	id       string
	contract string
	service  string
	churn    string
	monthly  float64
	sat      int
	usage    float64
	cltv     float64
	tickets  int
}

var requiredColumns = []string{
	dataset.ColCustomerID,
	dataset.ColContract,
	dataset.ColMonthlyCharges,
	dataset.ColSatisfaction,
	dataset.ColDataUsage,
	dataset.ColCLTV,
	dataset.ColTickets,
	dataset.ColChurn,
}

func parseRows(t *dataset.Table) ([]row, error) {
	idx := map[string]int{}
	for _, name := range requiredColumns {
		i := t.Index(name)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		idx[name] = i
	}
	svc := t.Index(dataset.ColInternetService)

	num := func(line int, rec []string, col string) (float64, error) {
		raw := rec[idx[col]]
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, &ValueError{Row: line, Column: col, Value: raw}
		}
		return v, nil
	}

	out := make([]row, len(t.Rows))
	for i, rec := range t.Rows {
		line := i + 1
		r := row{
			id:       rec[idx[dataset.ColCustomerID]],
			contract: strings.TrimSpace(rec[idx[dataset.ColContract]]),
			churn:    strings.TrimSpace(rec[idx[dataset.ColChurn]]),
		}
		if svc >= 0 {
			r.service = strings.TrimSpace(rec[svc])
		}
		var err error
		if r.monthly, err = num(line, rec, dataset.ColMonthlyCharges); err != nil {
			return nil, err
		}
		if r.usage, err = num(line, rec, dataset.ColDataUsage); err != nil {
			return nil, err
		}
		if r.cltv, err = num(line, rec, dataset.ColCLTV); err != nil {
			return nil, err
		}
		sat, err := num(line, rec, dataset.ColSatisfaction)
		if err != nil {
			return nil, err
		}
		tix, err := num(line, rec, dataset.ColTickets)
		if err != nil {
			return nil, err
		}
		r.sat, r.tickets = int(sat), int(tix)
		out[i] = r
	}
	return out, nil
}

// Summarize computes the dashboard summary of an enriched table.
func Summarize(t *dataset.Table, opt Options) (*Summary, error) {
	rows, err := parseRows(t)
	if err != nil {
		return nil, err
	}
	if opt.HistogramBins <= 0 {
		opt.HistogramBins = DefaultOptions().HistogramBins
	}

	s := &Summary{Header: t.Header, table: t}
	s.KPIs = kpis(rows)
	s.BySatisfaction = groupCounts(rows, func(r row) string { return strconv.Itoa(r.sat) }, numericKeys)
	s.ByContract = groupCounts(rows, func(r row) string { return r.contract }, nil)

	var pair pairAcc
	s.Scatter = make([]ScatterPoint, len(rows))
	for i, r := range rows {
		s.Scatter[i] = ScatterPoint{
			CustomerID:     r.id,
			DataUsageGB:    r.usage,
			MonthlyCharges: r.monthly,
			Tickets:        r.tickets,
			Churn:          r.churn,
		}
		pair.add(r.usage, r.monthly)
	}
	s.UsageChargeR = pair.r()
	if math.IsNaN(s.UsageChargeR) {
		s.UsageChargeR = 0
	}

	s.CLTVHistogram = histogram(rows, opt.HistogramBins)
	s.Findings = findings(rows)
	s.Columns = Profile(t, ProfileOptions{TopValues: 5}).Cols

	n := min(max(opt.PreviewRows, 0), len(t.Rows))
	s.Head = t.Rows[:n]
	return s, nil
}

// Rows returns up to limit leading rows verbatim.
func (s *Summary) Rows(limit int) [][]string {
	if s.table == nil {
		return s.Head
	}
	return s.table.Rows[:min(max(limit, 0), len(s.table.Rows))]
}

func kpis(rows []row) KPIs {
	k := KPIs{Total: len(rows)}
	if k.Total == 0 {
		return k
	}
	var sat, cltv float64
	for _, r := range rows {
		if r.churn == dataset.ChurnYes {
			k.Churned++
		}
		sat += float64(r.sat)
		cltv += r.cltv
	}
	n := float64(k.Total)
	k.ChurnRate = float64(k.Churned) / n
	k.AvgSatisfaction = sat / n
	k.AvgCLTV = cltv / n
	return k
}

func numericKeys(a, b string) bool {
	x, errA := strconv.Atoi(a)
	y, errB := strconv.Atoi(b)
	if errA != nil || errB != nil {
		return a < b
	}
	return x < y
}

// groupCounts counts observed (key, churn) pairs, sorted by key then churn.
func groupCounts(rows []row, key func(row) string, less func(a, b string) bool) []GroupCount {
	type k struct{ key, churn string }
	counts := map[k]int{}
	for _, r := range rows {
		counts[k{key(r), r.churn}]++
	}
	out := make([]GroupCount, 0, len(counts))
	for kk, n := range counts {
		out = append(out, GroupCount{Key: kk.key, Churn: kk.churn, Count: n})
	}
	if less == nil {
		less = func(a, b string) bool { return a < b }
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key != out[j].Key {
			return less(out[i].Key, out[j].Key)
		}
		return out[i].Churn < out[j].Churn
	})
	return out
}

func histogram(rows []row, bins int) Histogram {
	h := Histogram{}
	if len(rows) == 0 {
		return h
	}
	h.Min, h.Max = math.Inf(1), math.Inf(-1)
	for _, r := range rows {
		h.Min = math.Min(h.Min, r.cltv)
		h.Max = math.Max(h.Max, r.cltv)
	}
	span := h.Max - h.Min
	if span == 0 {
		span = 1
	}
	h.Width = span / float64(bins)
	h.Bins = make([]HistBin, bins)
	for i := range h.Bins {
		h.Bins[i].Lo = h.Min + float64(i)*h.Width
		h.Bins[i].Hi = h.Min + float64(i+1)*h.Width
	}
	for _, r := range rows {
		i := int((r.cltv - h.Min) / h.Width)
		if i >= bins {
			i = bins - 1
		}
		if r.churn == dataset.ChurnYes {
			h.Bins[i].Yes++
		} else {
			h.Bins[i].No++
		}
	}
	return h
}

type rate struct{ yes, n int }

func (r rate) value() float64 { return float64(r.yes) / float64(r.n) }

func findings(rows []row) []Finding {
	var low, high, fiber, dsl rate
	var tixYes, tixNo rate
	contracts := map[string]*rate{}
	for _, r := range rows {
		churned := 0
		if r.churn == dataset.ChurnYes {
			churned = 1
			tixYes.yes += r.tickets
			tixYes.n++
		} else {
			tixNo.yes += r.tickets
			tixNo.n++
		}
		switch {
		case r.sat <= 2:
			low.yes += churned
			low.n++
		case r.sat >= 4:
			high.yes += churned
			high.n++
		}
		switch r.service {
		case "Fiber optic":
			fiber.yes += churned
			fiber.n++
		case "DSL":
			dsl.yes += churned
			dsl.n++
		}
		c := contracts[r.contract]
		if c == nil {
			c = &rate{}
			contracts[r.contract] = c
		}
		c.yes += churned
		c.n++
	}

	var out []Finding
	if low.n > 0 && high.n > 0 {
		out = append(out, Finding{
			Title: "Satisfaction is a leading churn indicator",
			Detail: fmt.Sprintf("Customers scoring 1-2 churn at %s vs %s for scores 4-5.",
				FormatPercent(low.value()), FormatPercent(high.value())),
		})
	}
	if fiber.n > 0 && dsl.n > 0 {
		out = append(out, Finding{
			Title: "Fiber optic customers churn differently",
			Detail: fmt.Sprintf("Fiber optic churn rate is %s vs %s for DSL.",
				FormatPercent(fiber.value()), FormatPercent(dsl.value())),
		})
	}
	if tixYes.n > 0 && tixNo.n > 0 {
		out = append(out, Finding{
			Title: "Support load precedes churn",
			Detail: fmt.Sprintf("Churned customers filed %.2f tickets last month on average vs %.2f for retained customers.",
				tixYes.value(), tixNo.value()),
		})
	}
	if len(contracts) > 0 {
		keys := make([]string, 0, len(contracts))
		for k := range contracts {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			a, b := contracts[keys[i]].value(), contracts[keys[j]].value()
			if a == b {
				return keys[i] < keys[j]
			}
			return a > b
		})
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s %s", k, FormatPercent(contracts[k].value()))
		}
		out = append(out, Finding{
			Title:  "Contract length drives retention",
			Detail: "Churn rate by contract: " + strings.Join(parts, ", ") + ".",
		})
	}
	return out
}
