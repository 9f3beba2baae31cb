package analysis

import (
	"encoding/json"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const enrichedHeader = "customerID,InternetService,Contract,MonthlyCharges,TotalCharges,SatisfactionScore,DataUsageMonthlyGB,CLTV,SupportTicketsLastMonth,Churn"

var enrichedRows = []string{
	"C-1,Fiber optic,Month-to-month,70.00,140,1,310.5,140.00,3,Yes",
	"C-2,Fiber optic,Month-to-month,80.00,800,2,250.0,800.00,2,Yes",
	"C-3,DSL,One year,50.00,600,5,90.2,1600.00,0,No",
	"C-4,DSL,Two year,60.00,1440,4,120.0,2400.00,1,No",
	"C-5,No,Month-to-month,20.00,0,3,0.0,400.00,0,No",
	"C-6,Fiber optic,One year,90.00,1080,4,280.1,2700.00,0,No",
}

func enrichedFile(t *testing.T) string {
	t.Helper()
	return writeCSV(t, "enriched.csv", append([]string{enrichedHeader}, enrichedRows...))
}

func TestLoadComputesKPIs(t *testing.T) {
	s, err := Load(enrichedFile(t), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "enriched.csv", s.Name)
	assert.Equal(t, 6, s.KPIs.Total)
	assert.Equal(t, 2, s.KPIs.Churned)
	assert.InDelta(t, 2.0/6, s.KPIs.ChurnRate, 1e-12)
	assert.InDelta(t, 19.0/6, s.KPIs.AvgSatisfaction, 1e-12)
	assert.InDelta(t, 8040.0/6, s.KPIs.AvgCLTV, 1e-9)
}

func TestGroupCountsAreSortedAndObservedOnly(t *testing.T) {
	s, err := Load(enrichedFile(t), DefaultOptions())
	require.NoError(t, err)

	wantSat := []GroupCount{
		{Key: "1", Churn: "Yes", Count: 1},
		{Key: "2", Churn: "Yes", Count: 1},
		{Key: "3", Churn: "No", Count: 1},
		{Key: "4", Churn: "No", Count: 2},
		{Key: "5", Churn: "No", Count: 1},
	}
	if diff := cmp.Diff(wantSat, s.BySatisfaction); diff != "" {
		t.Fatalf("satisfaction groups (-want +got):\n%s", diff)
	}
	wantContract := []GroupCount{
		{Key: "Month-to-month", Churn: "No", Count: 1},
		{Key: "Month-to-month", Churn: "Yes", Count: 2},
		{Key: "One year", Churn: "No", Count: 2},
		{Key: "Two year", Churn: "No", Count: 1},
	}
	if diff := cmp.Diff(wantContract, s.ByContract); diff != "" {
		t.Fatalf("contract groups (-want +got):\n%s", diff)
	}
}

func TestScatterCarriesHoverAndSize(t *testing.T) {
	s, err := Load(enrichedFile(t), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, s.Scatter, 6)
	assert.Equal(t, ScatterPoint{CustomerID: "C-1", DataUsageGB: 310.5, MonthlyCharges: 70, Tickets: 3, Churn: "Yes"}, s.Scatter[0])
	assert.Greater(t, s.UsageChargeR, 0.0)
}

func TestCLTVHistogramCoversEveryRow(t *testing.T) {
	s, err := Load(enrichedFile(t), DefaultOptions())
	require.NoError(t, err)

	h := s.CLTVHistogram
	require.Len(t, h.Bins, 20)
	assert.Equal(t, 140.0, h.Min)
	assert.Equal(t, 2700.0, h.Max)
	yes, no := 0, 0
	for _, b := range h.Bins {
		yes += b.Yes
		no += b.No
	}
	assert.Equal(t, 2, yes)
	assert.Equal(t, 4, no)
	assert.Equal(t, 1, h.Bins[0].Yes)
	assert.Equal(t, 1, h.Bins[19].No, "max value lands in the last bin")
}

func TestFindingsAreComputedFromData(t *testing.T) {
	s, err := Load(enrichedFile(t), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, s.Findings, 4)

	assert.Contains(t, s.Findings[0].Detail, "scoring 1-2 churn at 100.0% vs 0.0% for scores 4-5")
	assert.Contains(t, s.Findings[1].Detail, "Fiber optic churn rate is 66.7% vs 0.0% for DSL")
	assert.Contains(t, s.Findings[2].Detail, "2.50 tickets")
	assert.Contains(t, s.Findings[2].Detail, "0.25 for retained")
	assert.Contains(t, s.Findings[3].Detail, "Month-to-month 66.7%, One year 0.0%, Two year 0.0%")
}

func TestHeadIsVerbatimAndCapped(t *testing.T) {
	s, err := Load(enrichedFile(t), Options{PreviewRows: 2})
	require.NoError(t, err)
	require.Len(t, s.Head, 2)
	assert.Equal(t, strings.Split(enrichedRows[1], ","), s.Head[1])
	assert.Equal(t, strings.Split(enrichedHeader, ","), s.Header)

	assert.Len(t, s.Rows(4), 4)
	assert.Len(t, s.Rows(500), 6)
	assert.Empty(t, s.Rows(-1))
}

func TestZeroPreviewOmitsRawRows(t *testing.T) {
	s, err := Load(enrichedFile(t), Options{})
	require.NoError(t, err)
	assert.Empty(t, s.Head)
	assert.Len(t, s.Rows(3), 3)
	assert.NotContains(t, s.Markdown(), "[RAW DATA PREVIEW")
	assert.Len(t, s.CLTVHistogram.Bins, 20)
}

func TestLoadMissingFileTellsOperatorToGenerate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "professional_churn_dataset.csv")
	_, err := Load(path, DefaultOptions())

	var missing *MissingDerivedFileError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, path, missing.Path)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Contains(t, err.Error(), "run 'churnlens generate' first")
}

func TestLoadRejectsNonEnrichedOrCorruptFiles(t *testing.T) {
	cases := []struct {
		name  string
		lines []string
		check func(t *testing.T, err error)
	}{
		{
			name:  "base dataset",
			lines: []string{"customerID,Contract,MonthlyCharges,Churn", "A,One year,10,No"},
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrMissingColumn) },
		},
		{
			name:  "bad cltv",
			lines: []string{enrichedHeader, enrichedRows[0], "C-9,DSL,One year,50,50,3,1.0,oops,0,No"},
			check: func(t *testing.T, err error) {
				var ve *ValueError
				require.True(t, errors.As(err, &ve))
				assert.Equal(t, 2, ve.Row)
				assert.Equal(t, "CLTV", ve.Column)
			},
		},
		{
			name:  "non-finite cltv",
			lines: []string{enrichedHeader, "C-9,DSL,One year,NaN,50,3,1.0,NaN,0,No"},
			check: func(t *testing.T, err error) {
				var ve *ValueError
				require.True(t, errors.As(err, &ve))
				assert.Equal(t, 1, ve.Row)
			},
		},
		{
			name:  "infinite usage",
			lines: []string{enrichedHeader, enrichedRows[0], "C-9,DSL,One year,50,50,3,Inf,100,0,No"},
			check: func(t *testing.T, err error) {
				var ve *ValueError
				require.True(t, errors.As(err, &ve))
				assert.Equal(t, "DataUsageMonthlyGB", ve.Column)
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeCSV(t, "x.csv", tc.lines), DefaultOptions())
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestSummaryMarkdownAndJSON(t *testing.T) {
	s, err := Load(enrichedFile(t), DefaultOptions())
	require.NoError(t, err)

	md := s.Markdown()
	for _, want := range []string{
		"[CHURN DASHBOARD]",
		"- Total Customers: 6",
		"- Churn Rate: 33.3% (2 churned)",
		"- Avg CLTV: $1,340.00",
		"[KEY FINDINGS]",
		"[CHURN BY SATISFACTION SCORE]",
		"| SatisfactionScore | Churn | count |",
		"[CHURN BY CONTRACT]",
		"[CLTV DISTRIBUTION]",
		"[DATA USAGE VS MONTHLY CHARGES]",
		"[RAW DATA PREVIEW: FIRST 6 ROWS]",
		"| C-6 | Fiber optic | One year |",
	} {
		assert.Contains(t, md, want)
	}

	b, err := json.Marshal(s)
	require.NoError(t, err)
	var round map[string]any
	require.NoError(t, json.Unmarshal(b, &round))
	kpis := round["kpis"].(map[string]any)
	assert.Equal(t, float64(6), kpis["total_customers"])
}

func TestFormatHelpersGroupThousands(t *testing.T) {
	assert.Equal(t, "7,043", FormatCount(7043))
	assert.Equal(t, "$2,345.67", FormatMoney(2345.671))
	assert.Equal(t, "26.5%", FormatPercent(0.2654))
	assert.Equal(t, "3.17/5", FormatScore(19.0/6))
}
