package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the counters the reservation lifecycle reports.
type Metrics struct {
	registry *prometheus.Registry

	HoldsCreated   prometheus.Counter
	HoldsConfirmed prometheus.Counter
	HoldsCancelled prometheus.Counter
	HoldsDeclined  prometheus.Counter
	HoldsExpired   prometheus.Counter
	SeatConflicts  prometheus.Counter

	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	httpDuration *prometheus.HistogramVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		HoldsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tessera_holds_created_total",
			Help: "Draft reservations successfully created",
		}),
		HoldsConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tessera_holds_confirmed_total",
			Help: "Reservations confirmed by payment",
		}),
		HoldsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tessera_holds_cancelled_total",
			Help: "Reservations cancelled by their owner or an admin",
		}),
		HoldsDeclined: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tessera_holds_declined_total",
			Help: "Reservations released after a declined payment",
		}),
		HoldsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tessera_holds_expired_total",
			Help: "Reservations released by hold expiry",
		}),
		SeatConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tessera_seat_conflicts_total",
			Help: "Hold attempts rejected because a seat was taken",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tessera_cache_hits_total",
			Help: "Read-through cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tessera_cache_misses_total",
			Help: "Read-through cache misses",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tessera_http_request_duration_seconds",
			Help:    "HTTP request latency by method, path and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}

	registry.MustRegister(
		m.HoldsCreated, m.HoldsConfirmed, m.HoldsCancelled,
		m.HoldsDeclined, m.HoldsExpired, m.SeatConflicts,
		m.CacheHits, m.CacheMisses, m.httpDuration,
	)

	return m
}

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Middleware records request latency per route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.httpDuration.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}
