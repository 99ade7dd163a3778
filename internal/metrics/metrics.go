package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks the number of outbound Admin API calls.
	ShopifyRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopify_api_requests_total",
			Help: "Total number of Shopify Admin API requests made (by operation, method and status).",
		},
		[]string{"operation", "method", "status"},
	)

	// Measures duration of Admin API requests.
	ShopifyRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopify_api_request_duration_seconds",
			Help:    "Duration of Shopify Admin API requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
		},
		[]string{"operation", "method"},
	)

	// Counts catalog page reads by result.
	PageFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_page_fetch_total",
			Help: "Catalog page reads by result.",
		},
		[]string{"result"}, // ok | degraded
	)

	// Counts product mutations by operation and outcome.
	MutationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_mutation_total",
			Help: "Product mutations by operation and outcome.",
		},
		[]string{"operation", "outcome"}, // outcome = succeeded | failed | partial | invalid | replayed
	)

	// Tracks published events by subject and result.
	EventPublishCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_events_published_total",
			Help: "Total number of product events published.",
		},
		[]string{"broker", "subject", "result"}, // result = "ok" | "error"
	)

	EventPublishLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_event_publish_latency_seconds",
			Help:    "Time taken to publish product events.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"broker", "subject"},
	)

	// Tracks cache hits and misses for shop credentials.
	SecretsCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secrets_cache_access_total",
			Help: "Number of cache hits/misses in secret cache.",
		},
		[]string{"result"}, // hit | miss
	)

	// Tracks total errors (aggregated).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_errors_total",
			Help: "Count of service-level errors by component.",
		},
		[]string{"component", "reason"},
	)
)

// ObserveDuration records the time taken for a function and updates the given histogram.
func ObserveDuration(v interface{}, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()

	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	default:
		// counters carry no duration
	}
}

// ShopifyObserver returns a per-attempt observer for the HTTP executor.
// operation maps a request to its label.
func ShopifyObserver(operation func(*http.Request) string) func(*http.Request, int, time.Duration) {
	return func(req *http.Request, status int, elapsed time.Duration) {
		op := operation(req)
		code := "error"
		if status > 0 {
			code = strconv.Itoa(status)
		}
		ShopifyRequestsTotal.WithLabelValues(op, req.Method, code).Inc()
		ShopifyRequestDuration.WithLabelValues(op, req.Method).Observe(elapsed.Seconds())
	}
}

func IncPageFetch(result string) {
	PageFetchTotal.WithLabelValues(result).Inc()
}

func IncMutation(operation, outcome string) {
	MutationTotal.WithLabelValues(operation, outcome).Inc()
}

func IncEventPublish(broker, subject, result string) {
	EventPublishCount.WithLabelValues(broker, subject, result).Inc()
}

func IncCacheHit(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	SecretsCacheHits.WithLabelValues(result).Inc()
}

func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}
