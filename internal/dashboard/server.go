package dashboard

import (
	"context"
	"net/http"
	"strconv"

	"github.com/KaramelBytes/churnlens/internal/analysis"
	"github.com/KaramelBytes/churnlens/internal/logger"
	"github.com/KaramelBytes/churnlens/internal/metrics"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	defaultRowLimit = 50
	maxRowLimit     = 500
)

// Server serves a summary that is computed once at startup.
type Server struct {
	e       *echo.Echo
	summary *analysis.Summary
	page    []byte
}

// NewServer wires routes for s. Metrics are registered on reg and exposed at /metrics.
func NewServer(s *analysis.Summary, reg *prometheus.Registry) (*Server, error) {
	page, err := renderPage(s)
	if err != nil {
		return nil, err
	}
	srv := &Server{summary: s, page: page}

	metrics.MustRegister(reg)
	metrics.DatasetCustomers.Set(float64(s.KPIs.Total))
	metrics.DatasetChurnRate.Set(s.KPIs.ChurnRate)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echoMid.Recover(), requestLogger())

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	e.GET("/", srv.indexHandler)
	api := e.Group("/api")
	api.GET("/summary", srv.summaryHandler)
	api.GET("/rows", srv.rowsHandler)

	srv.e = e
	return srv, nil
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.e }

func (s *Server) Start(addr string) error {
	logger.Log.Info("dashboard listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }

func (s *Server) indexHandler(c echo.Context) error {
	metrics.DashboardRequests.WithLabelValues("index").Inc()
	return c.HTMLBlob(http.StatusOK, s.page)
}

func (s *Server) summaryHandler(c echo.Context) error {
	metrics.DashboardRequests.WithLabelValues("summary").Inc()
	return c.JSON(http.StatusOK, s.summary)
}

func (s *Server) rowsHandler(c echo.Context) error {
	metrics.DashboardRequests.WithLabelValues("rows").Inc()

	limit := defaultRowLimit
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
		}
		limit = min(n, maxRowLimit)
	}
	rows := s.summary.Rows(limit)
	return c.JSON(http.StatusOK, map[string]any{
		"limit":  limit,
		"count":  len(rows),
		"header": s.summary.Header,
		"rows":   rows,
	})
}

func requestLogger() echo.MiddlewareFunc {
	return echoMid.RequestLoggerWithConfig(echoMid.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echoMid.RequestLoggerValues) error {
			logger.Log.Debug("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	})
}
