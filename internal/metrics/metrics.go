package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RowsEnriched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "churnlens_rows_enriched_total",
			Help: "Rows written by the enrichment pipeline",
		},
	)

	TotalChargesCoerced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "churnlens_totalcharges_coerced_total",
			Help: "TotalCharges cells that were blank or unparseable and became 0",
		},
	)

	DashboardRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churnlens_dashboard_requests_total",
			Help: "Dashboard HTTP requests by route",
		},
		[]string{"route"}, // index|summary|rows
	)

	DatasetCustomers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "churnlens_dataset_customers",
			Help: "Rows in the dataset served by the dashboard",
		},
	)

	DatasetChurnRate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "churnlens_dataset_churn_rate",
			Help: "Fraction of churned customers in the served dataset",
		},
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		RowsEnriched,
		TotalChargesCoerced,
		DashboardRequests,
		DatasetCustomers,
		DatasetChurnRate,
	)
}
