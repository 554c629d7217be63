package middlewares

import (
	"strconv"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// normalizeRoutePath returns the route template to keep label cardinality
// bounded. Unmatched routes fall back to the raw path.
func normalizeRoutePath(c *fiber.Ctx) string {
	if route := c.Route(); route != nil {
		return route.Path
	}
	return c.Path()
}

// normalizeStatus buckets a status code: 2xx, 4xx, 5xx, or the code itself.
func normalizeStatus(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	}
	return strconv.Itoa(status)
}

// AttachMetrics registers HTTP collectors on reg, times every request and
// serves reg at /metrics. The sync engine registers its own collectors on
// the same registry.
func AttachMetrics(app *fiber.App, reg *prometheus.Registry) {
	labels := []string{"method", "path", "status"}
	reqDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "notesync",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of local API requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, labels)
	reqTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "notesync",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Local API requests by route and status class.",
	}, labels)
	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "notesync",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Local API requests currently being served.",
	})

	reg.MustRegister(reqDuration, reqTotal, inFlight)

	app.Use(func(c *fiber.Ctx) error {
		inFlight.Inc()
		defer inFlight.Dec()

		start := time.Now()
		err := c.Next()

		path := normalizeRoutePath(c)
		status := normalizeStatus(c.Response().StatusCode())
		reqDuration.WithLabelValues(c.Method(), path, status).Observe(time.Since(start).Seconds())
		reqTotal.WithLabelValues(c.Method(), path, status).Inc()
		return err
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
}
