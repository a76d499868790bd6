package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the finance server.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	TradesSettled  *prometheus.CounterVec // labels: side
	TradesRejected *prometheus.CounterVec // labels: side, kind

	QuoteLookupDur    prometheus.Histogram
	QuoteFailures     prometheus.Counter
	QuoteCacheHits    prometheus.Counter
	QuoteCacheMiss    prometheus.Counter
	CacheBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open

	HTTPRequests *prometheus.CounterVec // labels: route, status
	HTTPDur      *prometheus.HistogramVec
}

// NewMetrics creates all metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TradesSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finance_trades_settled_total",
			Help: "Trades committed to the ledger",
		}, []string{"side"}),
		TradesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finance_trades_rejected_total",
			Help: "Trade commands rejected before settlement",
		}, []string{"side", "kind"}),

		QuoteLookupDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "finance_quote_lookup_duration_seconds",
			Help:    "Quote provider latency per lookup",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		QuoteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finance_quote_failures_total",
			Help: "Quote lookups that failed for reasons other than an unknown symbol",
		}),
		QuoteCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finance_quote_cache_hits_total",
			Help: "Quotes served from the Redis cache",
		}),
		QuoteCacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finance_quote_cache_misses_total",
			Help: "Quotes not found in the Redis cache",
		}),
		CacheBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "finance_quote_cache_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),

		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finance_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "status"}),
		HTTPDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "finance_http_request_duration_seconds",
			Help:    "HTTP handler latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		m.TradesSettled,
		m.TradesRejected,
		m.QuoteLookupDur,
		m.QuoteFailures,
		m.QuoteCacheHits,
		m.QuoteCacheMiss,
		m.CacheBreakerState,
		m.HTTPRequests,
		m.HTTPDur,
	)

	return m
}

func (m *Metrics) Settled(side string) {
	if m == nil {
		return
	}
	m.TradesSettled.WithLabelValues(side).Inc()
}

func (m *Metrics) Rejected(side, kind string) {
	if m == nil {
		return
	}
	m.TradesRejected.WithLabelValues(side, kind).Inc()
}

// ObserveQuote records one provider lookup. notFound lookups are not failures.
func (m *Metrics) ObserveQuote(d time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.QuoteLookupDur.Observe(d.Seconds())
	if failed {
		m.QuoteFailures.Inc()
	}
}

func (m *Metrics) CacheResult(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.QuoteCacheHits.Inc()
	} else {
		m.QuoteCacheMiss.Inc()
	}
}

func (m *Metrics) SetBreakerState(state int) {
	if m == nil {
		return
	}
	m.CacheBreakerState.Set(float64(state))
}

func (m *Metrics) ObserveHTTP(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, statusLabel(status)).Inc()
	m.HTTPDur.WithLabelValues(route).Observe(d.Seconds())
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
