// Package enrich turns the base churn table into the enriched dataset.
package enrich

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/KaramelBytes/churnlens/internal/dataset"
	"github.com/KaramelBytes/churnlens/internal/logger"
	"github.com/KaramelBytes/churnlens/internal/metrics"
	"github.com/KaramelBytes/churnlens/internal/synth"
	"github.com/KaramelBytes/churnlens/internal/utils"
	"go.uber.org/zap"
)

// Options controls a pipeline run.
type Options struct {
	Seed uint64
}

// DefaultOptions returns the options that reproduce the published dataset.
func DefaultOptions() Options {
	return Options{Seed: synth.DefaultSeed}
}

// Record is the typed view of one enriched row.
type Record struct {
	InternetService string
	MonthlyCharges  float64
	// TotalCharges is the cleaned value; blanks and junk are 0.
	TotalCharges float64
	Churned      bool
	// Horizon is the sampled retention horizon used for CLTV, in months.
	Horizon int

	SatisfactionScore       int
	DataUsageMonthlyGB      float64
	CLTV                    float64
	SupportTicketsLastMonth int
}

// Result describes an enriched table and its encoded form.
type Result struct {
	Table    *dataset.Table
	Records  []Record
	Encoding string
	// Coerced counts TotalCharges cells replaced by 0.
	Coerced int
	// Bytes and SHA256 are set by Encode.
	Bytes  []byte
	SHA256 string
}

// Shape returns (rows, columns) of the enriched table.
func (r *Result) Shape() (int, int) { return r.Table.Shape() }

// Run reads input, enriches it, and writes output atomically. Nothing is
// written when any step fails.
func Run(input, output string, opt Options) (*Result, error) {
	res, err := Generate(input, opt)
	if err != nil {
		return nil, err
	}
	b, err := dataset.WriteCSV(output, res.Table)
	if err != nil {
		return nil, fmt.Errorf("write output: %w", err)
	}
	res.Bytes, res.SHA256 = b, utils.SHA256Hex(b)
	rows, cols := res.Shape()
	metrics.RowsEnriched.Add(float64(rows))
	logger.Log.Info("wrote enriched dataset",
		zap.String("path", output),
		zap.Int("rows", rows),
		zap.Int("columns", cols),
	)
	return res, nil
}

// Encode renders the table as it would be written to output and records
// its checksum.
func (r *Result) Encode(output string) error {
	b, err := dataset.Encode(r.Table, dataset.DelimiterFor(output))
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	r.Bytes = b
	r.SHA256 = utils.SHA256Hex(b)
	return nil
}

// Generate runs the pipeline in memory. Call Encode before using Bytes.
func Generate(input string, opt Options) (*Result, error) {
	if _, err := os.Stat(input); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MissingInputFileError{Path: input}
		}
		return nil, fmt.Errorf("stat input: %w", err)
	}
	src, err := dataset.ReadCSV(input)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("read input",
		zap.String("path", input),
		zap.String("encoding", src.Encoding),
		zap.Int("rows", len(src.Rows)),
	)

	out, recs, coerced, err := Enrich(src, synth.NewRand(opt.Seed))
	if err != nil {
		return nil, err
	}
	if coerced > 0 {
		metrics.TotalChargesCoerced.Add(float64(coerced))
		logger.Log.Info("coerced non-numeric TotalCharges to 0", zap.Int("cells", coerced))
	}
	return &Result{
		Table:    out,
		Records:  recs,
		Encoding: src.Encoding,
		Coerced:  coerced,
	}, nil
}

// CleanTotal coerces a TotalCharges cell. The bool reports whether the value
// was replaced by 0.
func CleanTotal(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, true
	}
	return v, false
}

// IsChurned reports whether a churn flag marks a departed customer.
func IsChurned(flag string) bool {
	return strings.TrimSpace(flag) == dataset.ChurnYes
}

// Enrich derives the synthetic columns from src using r. Each derived column
// is drawn in its own top-to-bottom pass, in output column order, so the
// table is reproducible for a given seed and row order.
func Enrich(src *dataset.Table, r *rand.Rand) (*dataset.Table, []Record, int, error) {
	if err := synth.ValidateDefaults(); err != nil {
		return nil, nil, 0, err
	}
	for _, name := range dataset.DerivedColumns {
		if src.Has(name) {
			return nil, nil, 0, fmt.Errorf("%w: %s", ErrAlreadyEnriched, name)
		}
	}
	idx := map[string]int{}
	for _, name := range []string{dataset.ColInternetService, dataset.ColMonthlyCharges, dataset.ColTotalCharges, dataset.ColChurn} {
		i := src.Index(name)
		if i < 0 {
			return nil, nil, 0, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		idx[name] = i
	}

	recs := make([]Record, len(src.Rows))
	coerced := 0
	for i, row := range src.Rows {
		monthlyRaw := row[idx[dataset.ColMonthlyCharges]]
		monthly, err := strconv.ParseFloat(strings.TrimSpace(monthlyRaw), 64)
		if err != nil || math.IsNaN(monthly) || math.IsInf(monthly, 0) {
			return nil, nil, 0, &RowError{Row: i + 1, Column: dataset.ColMonthlyCharges, Value: monthlyRaw}
		}
		if monthly < 0 {
			return nil, nil, 0, &RowError{Row: i + 1, Column: dataset.ColMonthlyCharges, Value: monthlyRaw, Reason: "is negative"}
		}
		totalRaw := row[idx[dataset.ColTotalCharges]]
		total, bad := CleanTotal(totalRaw)
		if bad {
			coerced++
		}
		if total < 0 {
			return nil, nil, 0, &RowError{Row: i + 1, Column: dataset.ColTotalCharges, Value: totalRaw, Reason: "is negative"}
		}
		// Service names match exactly; padded values get no usage draw.
		recs[i] = Record{
			InternetService: row[idx[dataset.ColInternetService]],
			MonthlyCharges:  monthly,
			TotalCharges:    total,
			Churned:         IsChurned(row[idx[dataset.ColChurn]]),
		}
	}

	for i := range recs {
		recs[i].SatisfactionScore = synth.Satisfaction(r, recs[i].Churned)
	}
	for i := range recs {
		recs[i].DataUsageMonthlyGB = synth.DataUsage(r, recs[i].InternetService)
	}
	for i := range recs {
		rec := &recs[i]
		rec.Horizon = synth.Horizon(r)
		rec.CLTV = synth.CLTV(rec.TotalCharges, rec.MonthlyCharges, rec.Horizon, rec.Churned)
	}
	for i := range recs {
		recs[i].SupportTicketsLastMonth = synth.Tickets(r, recs[i].Churned)
	}

	return assemble(src, idx, recs), recs, coerced, nil
}

// assemble lays out the output: source columns without Churn, the derived
// columns, then Churn.
func assemble(src *dataset.Table, idx map[string]int, recs []Record) *dataset.Table {
	churnIdx := idx[dataset.ColChurn]
	totalIdx := idx[dataset.ColTotalCharges]

	header := make([]string, 0, len(src.Header)+len(dataset.DerivedColumns))
	for i, h := range src.Header {
		if i != churnIdx {
			header = append(header, h)
		}
	}
	header = append(header, dataset.DerivedColumns...)
	header = append(header, src.Header[churnIdx])

	rows := make([][]string, len(src.Rows))
	for i, row := range src.Rows {
		rec := recs[i]
		out := make([]string, 0, len(header))
		for j, v := range row {
			switch j {
			case churnIdx:
				continue
			case totalIdx:
				v = strconv.FormatFloat(rec.TotalCharges, 'f', -1, 64)
			}
			out = append(out, v)
		}
		out = append(out,
			strconv.Itoa(rec.SatisfactionScore),
			strconv.FormatFloat(rec.DataUsageMonthlyGB, 'f', 1, 64),
			strconv.FormatFloat(rec.CLTV, 'f', 2, 64),
			strconv.Itoa(rec.SupportTicketsLastMonth),
			row[churnIdx],
		)
		rows[i] = out
	}
	return &dataset.Table{Header: header, Rows: rows, Encoding: "utf-8"}
}
