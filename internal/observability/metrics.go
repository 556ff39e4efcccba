package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the literature watch service.
// Counters are organized by subsystem: source searches, record normalization,
// the cross-query merge, and report rendering. All collectors are registered
// via promauto.
type Metrics struct {
	// SearchesStarted counts searches initiated, labeled by source.
	SearchesStarted *prometheus.CounterVec

	// SearchesCompleted counts successful searches, labeled by source.
	SearchesCompleted *prometheus.CounterVec

	// SearchesFailed counts failed searches, labeled by source.
	SearchesFailed *prometheus.CounterVec

	// SearchDuration observes search duration in seconds, labeled by source.
	SearchDuration *prometheus.HistogramVec

	// ArticlesFetched counts articles that passed validity filtering,
	// labeled by source.
	ArticlesFetched *prometheus.CounterVec

	// RecordsDropped counts raw records dropped during normalization,
	// labeled by source.
	RecordsDropped *prometheus.CounterVec

	// DuplicateTitles counts title collisions resolved by the cross-query
	// merge.
	DuplicateTitles prometheus.Counter

	// ReportsRendered counts HTML reports rendered.
	ReportsRendered prometheus.Counter
}

// NewMetrics creates a new Metrics instance registered with the default
// Prometheus registry. The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return newMetrics(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates a Metrics instance registered with the
// given registry. Tests use this to avoid duplicate registration on the
// default registry.
func NewMetricsWithRegistry(namespace string, reg prometheus.Registerer) *Metrics {
	return newMetrics(namespace, reg)
}

func newMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SearchesStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_started_total",
			Help:      "Total number of source searches started",
		}, []string{"source"}),
		SearchesCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_completed_total",
			Help:      "Total number of source searches completed successfully",
		}, []string{"source"}),
		SearchesFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_failed_total",
			Help:      "Total number of source searches that failed",
		}, []string{"source"}),
		SearchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of source searches in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		ArticlesFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_fetched_total",
			Help:      "Total number of articles that passed validity filtering",
		}, []string{"source"}),
		RecordsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_dropped_total",
			Help:      "Total number of raw records dropped during normalization",
		}, []string{"source"}),
		DuplicateTitles: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_titles_total",
			Help:      "Total number of title collisions resolved by the merge",
		}),
		ReportsRendered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_rendered_total",
			Help:      "Total number of HTML reports rendered",
		}),
	}
}
