package correlation

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus collectors for reply correlation.
//
//   - confirmation_replies_total{reason}
//   - confirmation_classified_total{status}
//   - confirmation_match_strategy_total{strategy}
//   - confirmation_status_applied_total{status}
//   - confirmation_watches_retired_total
//   - confirmation_handle_duration_seconds
type Metrics struct {
	RepliesTotal    *prometheus.CounterVec
	ClassifiedTotal *prometheus.CounterVec
	StrategyTotal   *prometheus.CounterVec
	AppliedTotal    *prometheus.CounterVec
	RetiredTotal    prometheus.Counter
	HandleDuration  prometheus.Histogram
}

// NewMetrics registers the collectors once per process.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			RepliesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "confirmation_replies_total",
					Help: "Inbound replies by handling outcome",
				},
				[]string{"reason"},
			),
			ClassifiedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "confirmation_classified_total",
					Help: "Matched replies by classified status",
				},
				[]string{"status"},
			),
			StrategyTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "confirmation_match_strategy_total",
					Help: "Watch matches by phone matching strategy",
				},
				[]string{"strategy"},
			),
			AppliedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "confirmation_status_applied_total",
					Help: "Meeting confirmation states written by the pipeline",
				},
				[]string{"status"},
			),
			RetiredTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "confirmation_watches_retired_total",
					Help: "Watches removed after a terminal reply",
				},
			),
			HandleDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "confirmation_handle_duration_seconds",
					Help:    "Time spent handling one inbound reply",
					Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
				},
			),
		}
	})
	return globalMetrics
}

func (m *Metrics) observe(out Outcome, seconds float64) {
	if m == nil {
		return
	}
	m.RepliesTotal.WithLabelValues(string(out.Reason)).Inc()
	m.HandleDuration.Observe(seconds)
	if out.Strategy != "" {
		m.StrategyTotal.WithLabelValues(string(out.Strategy)).Inc()
	}
	if out.Processed {
		m.ClassifiedTotal.WithLabelValues(string(out.Result.Status)).Inc()
	}
	if out.StatusApplied {
		m.AppliedTotal.WithLabelValues(string(out.Result.Status)).Inc()
	}
	if out.WatchRetired {
		m.RetiredTotal.Inc()
	}
}
