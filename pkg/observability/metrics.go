package observability

import (
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/pipegraph/pkg/domain"
)

const namespace = "pipegraph"

// Metrics holds the activation collectors.
type Metrics struct {
	Recomputes  *prometheus.CounterVec
	Divergences *prometheus.CounterVec
	Transitions *prometheus.CounterVec
	Passes      *prometheus.HistogramVec
	Duration    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Recomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recomputes_total",
			Help:      "Activation recomputes, by pipeline.",
		}, []string{"pipeline"}),
		Divergences: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "divergences_total",
			Help:      "Recomputes that hit the pass limit, by pipeline.",
		}, []string{"pipeline"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Activation changes published, by direction.",
		}, []string{"direction"}),
		Passes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recompute_passes",
			Help:      "Sweeps needed to reach the fixed point.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
		}, []string{"pipeline"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recompute_duration_seconds",
			Help:      "Wall time of activation recomputes.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"pipeline"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.Recomputes, m.Divergences, m.Transitions, m.Passes, m.Duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks records every recompute and transition.
func (m *Metrics) Hooks() domain.ActivationHooks {
	return domain.ActivationHooks{
		OnRecompute: func(e domain.RecomputeEvent) {
			m.Recomputes.WithLabelValues(e.Pipeline).Inc()
			if errors.Is(e.Err, domain.ErrActivationDivergence) {
				m.Divergences.WithLabelValues(e.Pipeline).Inc()
				return
			}
			m.Passes.WithLabelValues(e.Pipeline).Observe(float64(e.Passes))
			m.Duration.WithLabelValues(e.Pipeline).Observe(e.Duration.Seconds())
		},
		OnTransition: func(t domain.Transition) {
			dir := "deactivated"
			if t.Activated {
				dir = "activated"
			}
			m.Transitions.WithLabelValues(dir).Inc()
		},
	}
}

// LogHooks logs recomputes at debug level and failures at warn level.
func LogHooks(logger *slog.Logger) domain.ActivationHooks {
	return domain.ActivationHooks{
		OnRecompute: func(e domain.RecomputeEvent) {
			if e.Err != nil {
				logger.Warn("activation recompute failed",
					"pipeline", e.Pipeline,
					"passes", e.Passes,
					"err", e.Err,
				)
				return
			}
			logger.Debug("activation recompute",
				"pipeline", e.Pipeline,
				"passes", e.Passes,
				"transitions", e.Transitions,
				"duration", e.Duration,
			)
		},
	}
}
