package providers

import (
	"pixeld/internal/structures"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	IncPixelsFired()
	IncConsentDenied()
	IncDuidsGenerated()
	IncStorageErrors(op string)
	IncResolverRequests(outcome string)
	ObservePersistenceDuration(duration time.Duration)
	RegisterSessionsGauge(f func() float64)
}

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	pixelsFired         prometheus.Counter
	consentDenied       prometheus.Counter
	duidsGenerated      prometheus.Counter
	storageErrors       *prometheus.CounterVec
	resolverRequests    *prometheus.CounterVec
	persistenceDuration prometheus.Histogram
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) IncPixelsFired() {
	m.pixelsFired.Inc()
}

func (m *MetricsProvider) IncConsentDenied() {
	m.consentDenied.Inc()
}

func (m *MetricsProvider) IncDuidsGenerated() {
	m.duidsGenerated.Inc()
}

func (m *MetricsProvider) IncStorageErrors(op string) {
	m.storageErrors.WithLabelValues(op).Inc()
}

func (m *MetricsProvider) IncResolverRequests(outcome string) {
	m.resolverRequests.WithLabelValues(outcome).Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) RegisterSessionsGauge(f func() float64) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "pixeld_sessions_total",
		Help: "Current number of tracked sessions",
	}, f)
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pixeld_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pixeld_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pixeld_resolver_cache_hits_total",
			Help: "Total number of resolver cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pixeld_resolver_cache_misses_total",
			Help: "Total number of resolver cache misses",
		}),

		pixelsFired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pixeld_pixels_fired_total",
			Help: "Total number of tracking pixels emitted",
		}),

		consentDenied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pixeld_consent_denied_total",
			Help: "Total number of track invocations suppressed by consent",
		}),

		duidsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pixeld_duids_generated_total",
			Help: "Total number of freshly generated durable identifiers",
		}),

		storageErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pixeld_storage_errors_total",
			Help: "Total number of swallowed storage errors",
		}, []string{"op"}),

		resolverRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pixeld_resolver_requests_total",
			Help: "Total number of identity-resolution requests by outcome",
		}, []string{"outcome"}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pixeld_persistence_duration_seconds",
			Help:    "Duration of persistence operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) IncPixelsFired()                                  {}
func (n *noopMetrics) IncConsentDenied()                                {}
func (n *noopMetrics) IncDuidsGenerated()                               {}
func (n *noopMetrics) IncStorageErrors(_ string)                        {}
func (n *noopMetrics) IncResolverRequests(_ string)                     {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)       {}
func (n *noopMetrics) RegisterSessionsGauge(_ func() float64)           {}
