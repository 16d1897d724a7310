package observability

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the Relato server
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Permission cache metrics
	PermCacheHitsTotal     prometheus.Counter
	PermCacheMissesTotal   prometheus.Counter
	PermCacheRebuildsTotal *prometheus.CounterVec
	PermCacheStaleServes   prometheus.Counter

	// Tenant resolution metrics
	TenantLookupsTotal  *prometheus.CounterVec
	TenantRejectedTotal *prometheus.CounterVec

	// Notification metrics
	NotificationsCreatedTotal    *prometheus.CounterVec
	NotificationsSuppressedTotal prometheus.Counter
	NotificationPushTotal        *prometheus.CounterVec
	NotificationsPurgedTotal     prometheus.Counter

	// Realtime metrics
	WSConnectionsActive prometheus.Gauge
	WSConnectsTotal     prometheus.Counter
	WSDisconnectsTotal  prometheus.Counter

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relato_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relato_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		PermCacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relato_permission_cache_hits_total",
			Help: "Permission checks answered from the in-memory cache",
		}),
		PermCacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relato_permission_cache_misses_total",
			Help: "Permission checks that required a cache rebuild",
		}),
		PermCacheRebuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relato_permission_cache_rebuilds_total",
				Help: "Full permission cache rebuilds by outcome",
			},
			[]string{"outcome"},
		),
		PermCacheStaleServes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relato_permission_cache_stale_serves_total",
			Help: "Permission checks served from stale contents after a failed rebuild",
		}),

		TenantLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relato_tenant_lookups_total",
				Help: "Tenant resolutions by source (identity, header, subdomain)",
			},
			[]string{"source"},
		),
		TenantRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relato_tenant_rejected_total",
				Help: "Tenant resolutions rejected by reason",
			},
			[]string{"reason"},
		),

		NotificationsCreatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relato_notifications_created_total",
				Help: "Notifications persisted by type",
			},
			[]string{"type"},
		),
		NotificationsSuppressedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relato_notifications_suppressed_total",
			Help: "Notifications suppressed by recipient preference",
		}),
		NotificationPushTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relato_notification_pushes_total",
				Help: "Live notification pushes by outcome (delivered, offline, stale)",
			},
			[]string{"outcome"},
		),
		NotificationsPurgedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relato_notifications_purged_total",
			Help: "Notifications deleted by the retention sweep",
		}),

		WSConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relato_ws_connections_active",
			Help: "Currently open WebSocket connections",
		}),
		WSConnectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relato_ws_connects_total",
			Help: "Total accepted WebSocket connections",
		}),
		WSDisconnectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relato_ws_disconnects_total",
			Help: "Total closed WebSocket connections",
		}),

		DBConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relato_db_connections_active",
			Help: "Active database connections",
		}),
		DBConnectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relato_db_connections_idle",
			Help: "Idle database connections",
		}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PermCacheHitsTotal,
		m.PermCacheMissesTotal,
		m.PermCacheRebuildsTotal,
		m.PermCacheStaleServes,
		m.TenantLookupsTotal,
		m.TenantRejectedTotal,
		m.NotificationsCreatedTotal,
		m.NotificationsSuppressedTotal,
		m.NotificationPushTotal,
		m.NotificationsPurgedTotal,
		m.WSConnectionsActive,
		m.WSConnectsTotal,
		m.WSDisconnectsTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// Handler returns the Prometheus scrape handler for the registry
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// HTTPMiddleware instruments handlers with request count and duration.
// The route template (mux path) should be used as the path label to keep
// cardinality bounded; raw URLs are not recorded.
func (m *Metrics) HTTPMiddleware(pathLabel func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			path := pathLabel(r)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades pass through the instrumented chain.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hj, ok := r.ResponseWriter.(http.Hijacker); ok {
		return hj.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}
