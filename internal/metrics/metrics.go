// Package metrics exposes Prometheus metrics for the fuel ledger, the
// assignment registry and the HTTP layer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/fleet-management/internal/service"
)

// Recorder owns a private registry so tests can create as many as they
// like.
type Recorder struct {
	registry *prometheus.Registry

	fuelLiters   *prometheus.CounterVec
	stockBalance prometheus.Gauge
	dailyReports prometheus.Counter
	assignments  *prometheus.CounterVec
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

var _ service.Observer = (*Recorder)(nil)

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		fuelLiters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleet",
			Name:      "fuel_liters_total",
			Help:      "Fuel moved through the depot ledger, by direction.",
		}, []string{"direction"}),
		stockBalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fleet",
			Name:      "fuel_stock_liters",
			Help:      "Depot fuel balance after the last ledger write.",
		}),
		dailyReports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fleet",
			Name:      "daily_reports_total",
			Help:      "Accepted daily fuel reports.",
		}),
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleet",
			Name:      "assignment_changes_total",
			Help:      "Assignment registry writes, by operation.",
		}, []string{"op"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleet",
			Name:      "http_requests_total",
			Help:      "HTTP requests, by route and status code.",
		}, []string{"method", "route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fleet",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	r.registry.MustRegister(
		r.fuelLiters, r.stockBalance, r.dailyReports, r.assignments, r.requests, r.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) FuelReplenished(qty, balance decimal.Decimal) {
	r.fuelLiters.WithLabelValues("in").Add(qty.InexactFloat64())
	r.stockBalance.Set(balance.InexactFloat64())
}

func (r *Recorder) FuelDispensed(qty, balance decimal.Decimal) {
	r.fuelLiters.WithLabelValues("out").Add(qty.InexactFloat64())
	r.stockBalance.Set(balance.InexactFloat64())
}

func (r *Recorder) DailyReportRecorded() { r.dailyReports.Inc() }

func (r *Recorder) AssignmentChanged(op string) { r.assignments.WithLabelValues(op).Inc() }

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Middleware counts requests by the matched route template, not the raw
// path, to keep label cardinality bounded.
func (r *Recorder) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			r.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			r.latency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
