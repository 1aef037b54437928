package observability

import (
	"time"

	"github.com/boddenberg/finance-tracker-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Recompute triggers, used as the "trigger" label.
const (
	TriggerManual = "manual"
	TriggerEvent  = "event"
)

// Metrics holds all Prometheus metrics for the tracker.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration   *prometheus.HistogramVec
	persistenceErrors *prometheus.CounterVec
	recomputes        *prometheus.CounterVec
	deltaConflicts    prometheus.Counter
	pendingInputs     *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tracker_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		persistenceErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_persistence_errors_total",
				Help: "Total failed reads and writes against the store.",
			},
			[]string{"collection"},
		),
		recomputes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_recomputes_total",
				Help: "Total dashboard recomputations.",
			},
			[]string{"trigger"},
		),
		deltaConflicts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tracker_goal_delta_conflicts_total",
				Help: "Total goal delta writes that lost a concurrent update race.",
			},
		),
		pendingInputs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_pending_input_total",
				Help: "Pending goal input lifecycle events.",
			},
			[]string{"action"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrPersistenceError counts a failed store call for a collection.
func (m *Metrics) IncrPersistenceError(collection string) {
	m.persistenceErrors.WithLabelValues(collection).Inc()
}

// IncrRecompute counts a dashboard recomputation.
func (m *Metrics) IncrRecompute(trigger string) {
	m.recomputes.WithLabelValues(trigger).Inc()
}

// IncrDeltaConflict counts a compare-and-set miss on a goal.
func (m *Metrics) IncrDeltaConflict() {
	m.deltaConflicts.Inc()
}

// IncrPendingInput counts a pending input action (set, apply, clear).
func (m *Metrics) IncrPendingInput(action string) {
	m.pendingInputs.WithLabelValues(action).Inc()
}

// GetRefreshSnapshot returns the recompute counters suitable for the
// GET /v1/metrics/refresh endpoint.
func (m *Metrics) GetRefreshSnapshot() *domain.RefreshStats {
	manual := getCounterValue(m.recomputes, TriggerManual)
	event := getCounterValue(m.recomputes, TriggerEvent)

	persistence := float64(0)
	for _, c := range []domain.Collection{domain.CollectionExpenses, domain.CollectionSavings, domain.CollectionSalaries} {
		persistence += getCounterValue(m.persistenceErrors, string(c))
	}

	return &domain.RefreshStats{
		Recomputes:        int64(manual + event),
		ManualRecomputes:  int64(manual),
		EventRecomputes:   int64(event),
		PersistenceErrors: int64(persistence),
		DeltaConflicts:    int64(readCounter(m.deltaConflicts)),
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	return readCounter(cv.WithLabelValues(label))
}

func readCounter(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
