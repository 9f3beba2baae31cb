package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/KaramelBytes/churnlens/internal/analysis"
	"github.com/KaramelBytes/churnlens/internal/dataset"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSummary(t *testing.T, n int) *analysis.Summary {
	t.Helper()
	tbl := &dataset.Table{Header: []string{
		"customerID", "InternetService", "Contract", "MonthlyCharges", "TotalCharges",
		"SatisfactionScore", "DataUsageMonthlyGB", "CLTV", "SupportTicketsLastMonth", "Churn",
	}}
	services := []string{"Fiber optic", "DSL", "No"}
	contracts := []string{"Month-to-month", "One year", "Two year"}
	for i := 0; i < n; i++ {
		churn := "No"
		sat := 4 + i%2
		if i%4 == 0 {
			churn = "Yes"
			sat = 1 + i%2
		}
		tbl.Rows = append(tbl.Rows, []string{
			fmt.Sprintf("C-%03d", i),
			services[i%3],
			contracts[i%3],
			fmt.Sprintf("%.2f", 20+float64(i)),
			"100",
			fmt.Sprint(sat),
			fmt.Sprintf("%.1f", float64(i%3)*10),
			fmt.Sprintf("%.2f", 100+float64(i)*5),
			fmt.Sprint(i % 3),
			churn,
		})
	}
	s, err := analysis.Summarize(tbl, analysis.DefaultOptions())
	require.NoError(t, err)
	s.Name = "professional_churn_dataset.csv"
	return s
}

func newTestServer(t *testing.T, n int) *Server {
	t.Helper()
	srv, err := NewServer(testSummary(t, n), prometheus.NewRegistry())
	require.NoError(t, err)
	return srv
}

func get(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestIndexRendersDashboard(t *testing.T) {
	srv := newTestServer(t, 12)
	rec := get(t, srv, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body := rec.Body.String()
	for _, want := range []string{
		"Customer Churn Analytics Dashboard",
		"Total Customers",
		"25.0%",
		"Key Findings",
		"Churn by Satisfaction Score",
		"Churn by Contract Type",
		"CLTV Distribution",
		"<circle",
		"C-011",
		"Raw Data Preview (first 12 rows)",
	} {
		assert.Contains(t, body, want)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	srv := newTestServer(t, 12)
	rec := get(t, srv, "/api/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		KPIs struct {
			Total     int     `json:"total_customers"`
			Churned   int     `json:"churned"`
			ChurnRate float64 `json:"churn_rate"`
		} `json:"kpis"`
		Findings []analysis.Finding `json:"findings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 12, got.KPIs.Total)
	assert.Equal(t, 3, got.KPIs.Churned)
	assert.InDelta(t, 0.25, got.KPIs.ChurnRate, 1e-12)
	assert.NotEmpty(t, got.Findings)
}

func TestRowsEndpointLimits(t *testing.T) {
	srv := newTestServer(t, 600)
	cases := []struct {
		query     string
		wantCode  int
		wantCount int
	}{
		{"/api/rows", http.StatusOK, 50},
		{"/api/rows?limit=7", http.StatusOK, 7},
		{"/api/rows?limit=10000", http.StatusOK, 500},
		{"/api/rows?limit=0", http.StatusBadRequest, 0},
		{"/api/rows?limit=abc", http.StatusBadRequest, 0},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			rec := get(t, srv, tc.query)
			require.Equal(t, tc.wantCode, rec.Code)
			if tc.wantCode != http.StatusOK {
				return
			}
			var got struct {
				Count  int        `json:"count"`
				Header []string   `json:"header"`
				Rows   [][]string `json:"rows"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tc.wantCount, got.Count)
			assert.Len(t, got.Rows, tc.wantCount)
			assert.Equal(t, "customerID", got.Header[0])
			assert.Equal(t, "C-000", got.Rows[0][0])
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, 8)
	rec := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	get(t, srv, "/api/summary")
	rec = get(t, srv, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "churnlens_dataset_customers 8")
	assert.Contains(t, body, "churnlens_dataset_churn_rate 0.25")
	assert.True(t, strings.Contains(body, `churnlens_dashboard_requests_total{route="summary"}`))
}
