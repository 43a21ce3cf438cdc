package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API requests partitioned by method, route, and status code
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlas_api_requests_total",
			Help: "Total number of CRM API requests processed",
		},
		[]string{"method", "route", "status"},
	)

	// Request duration in seconds with the same partitioning
	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "atlas_api_request_duration_seconds",
			Help:    "CRM API request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Requests currently being served
	apiInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "atlas_api_inflight_requests",
			Help: "Number of CRM API requests currently being served",
		},
	)
)

// Metrics returns a Fiber v3 middleware that records request counts,
// latencies, and in-flight totals. The matched route template is used as
// the route label so UUID path parameters do not blow up cardinality.
func Metrics() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		apiInFlight.Inc()
		defer apiInFlight.Dec()

		err := c.Next()

		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}

		labels := prometheus.Labels{
			"method": c.Method(),
			"route":  route,
			"status": strconv.Itoa(c.Response().StatusCode()),
		}
		apiRequestsTotal.With(labels).Inc()
		apiRequestDuration.With(labels).Observe(time.Since(start).Seconds())

		return err
	}
}
