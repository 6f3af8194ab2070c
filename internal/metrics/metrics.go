package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcomes
const (
	OutcomeSuccess     = "success"
	OutcomeInvalid     = "invalid_credentials"
	OutcomeInactive    = "inactive"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
)

// Metrics holds the service collectors
type Metrics struct {
	registry   prometheus.Gatherer
	registerer prometheus.Registerer

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	loginTotal        *prometheus.CounterVec
	lockoutsTotal     prometheus.Counter
	guardDeniedTotal  *prometheus.CounterVec
	purgedAttempts    prometheus.Counter
	permissionCacheOp *prometheus.CounterVec
}

// New creates the collectors and registers them on reg
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry:   reg,
		registerer: reg,
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		loginTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_auth_login_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		lockoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clinic_auth_lockouts_total",
			Help: "Username and IP pairs moved into the blocked state.",
		}),
		guardDeniedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_auth_guard_denied_total",
			Help: "Requests rejected by the authorization guard.",
		}, []string{"reason"}),
		purgedAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clinic_auth_failed_attempts_purged_total",
			Help: "Stale failed login records removed by the background purge.",
		}),
		permissionCacheOp: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_auth_permission_cache_total",
			Help: "Role permission cache lookups by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.httpInFlight,
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.loginTotal,
		m.lockoutsTotal,
		m.guardDeniedTotal,
		m.purgedAttempts,
		m.permissionCacheOp,
	)
	return m
}

// NewWithDefaults creates metrics on a fresh registry that also exposes
// Go runtime and process collectors
func NewWithDefaults() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return New(reg)
}

// PoolStats is a snapshot of the database connection pool
type PoolStats struct {
	Acquired int32
	Idle     int32
	Total    int32
	Max      int32
}

// ObservePool exports connection pool gauges that read stats at scrape time
func (m *Metrics) ObservePool(stats func() PoolStats) error {
	gauges := []struct {
		name, help string
		value      func(PoolStats) int32
	}{
		{"clinic_db_pool_acquired_conns", "Connections currently in use.", func(s PoolStats) int32 { return s.Acquired }},
		{"clinic_db_pool_idle_conns", "Idle connections in the pool.", func(s PoolStats) int32 { return s.Idle }},
		{"clinic_db_pool_total_conns", "Open connections in the pool.", func(s PoolStats) int32 { return s.Total }},
		{"clinic_db_pool_max_conns", "Configured pool size.", func(s PoolStats) int32 { return s.Max }},
	}

	for _, g := range gauges {
		value := g.value
		err := m.registerer.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: g.name,
			Help: g.help,
		}, func() float64 { return float64(value(stats())) }))
		if err != nil {
			return err
		}
	}
	return nil
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Instrument records request count, latency and in-flight gauge. The route
// label is the chi route pattern so path parameters do not explode cardinality.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := strconv.Itoa(sw.code)

		m.httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
	})
}

// LoginAttempt counts a login by outcome
func (m *Metrics) LoginAttempt(outcome string) {
	if m == nil {
		return
	}
	m.loginTotal.WithLabelValues(outcome).Inc()
}

// Lockout counts a username/IP pair entering the blocked state
func (m *Metrics) Lockout() {
	if m == nil {
		return
	}
	m.lockoutsTotal.Inc()
}

// GuardDenied counts a request rejected by the guard
func (m *Metrics) GuardDenied(reason string) {
	if m == nil {
		return
	}
	m.guardDeniedTotal.WithLabelValues(reason).Inc()
}

// AttemptsPurged counts stale failed-login rows removed
func (m *Metrics) AttemptsPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.purgedAttempts.Add(float64(n))
}

// PermissionCache counts a cache lookup; result is "hit", "miss" or "error"
func (m *Metrics) PermissionCache(result string) {
	if m == nil {
		return
	}
	m.permissionCacheOp.WithLabelValues(result).Inc()
}

type statusWriter struct {
	http.ResponseWriter
	code        int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.code = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}
