package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the catalog module: lifecycle
// mutation counts and read-path durations.
type Metrics struct {
	CompetenciesCreated    prometheus.Counter
	CompetenciesActivated  prometheus.Counter
	CompetenciesDeprecated prometheus.Counter
	ReviewersAssigned      prometheus.Counter
	ListDuration           prometheus.Histogram
	StatsDuration          prometheus.Histogram
}

// New creates a Metrics instance with all catalog metrics registered.
func New() *Metrics {
	return &Metrics{
		CompetenciesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medcat_competencies_created_total",
			Help: "Total number of competencies created",
		}),
		CompetenciesActivated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medcat_competencies_activated_total",
			Help: "Total number of competencies activated",
		}),
		CompetenciesDeprecated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medcat_competencies_deprecated_total",
			Help: "Total number of competencies deprecated",
		}),
		ReviewersAssigned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medcat_reviewers_assigned_total",
			Help: "Total number of reviewer assignments",
		}),
		ListDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "medcat_catalog_list_duration_seconds",
			Help:    "Duration of catalog list queries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		StatsDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "medcat_catalog_stats_duration_seconds",
			Help:    "Duration of catalog stats aggregation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveList records the duration of a List query. Call with time.Now()
// taken at the start of the operation.
func (m *Metrics) ObserveList(start time.Time) {
	m.ListDuration.Observe(time.Since(start).Seconds())
}

// ObserveStats records the duration of a Stats aggregation.
func (m *Metrics) ObserveStats(start time.Time) {
	m.StatsDuration.Observe(time.Since(start).Seconds())
}
