package observability_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/pipegraph/pkg/domain"
	"github.com/aretw0/pipegraph/pkg/graph"
	"github.com/aretw0/pipegraph/pkg/observability"
)

func TestMetrics_FromRecompute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	g := graph.New("demo", graph.WithHooks(m.Hooks()))
	_, err = g.AddProcess("A", domain.ProcessSpec{Module: "m", Params: []domain.ParamSpec{{Name: "y", Output: true}}})
	require.NoError(t, err)
	require.NoError(t, g.Recompute())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Recomputes.WithLabelValues("demo")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("activated")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Transitions.WithLabelValues("deactivated")))

	require.NoError(t, g.SetNodeEnabled("A", false))
	require.NoError(t, g.Recompute())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Recomputes.WithLabelValues("demo")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("deactivated")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Passes))

	_, err = observability.NewMetrics(reg)
	assert.Error(t, err, "collectors register once per registry")
}

func TestMetrics_Divergence(t *testing.T) {
	m, err := observability.NewMetrics(nil)
	require.NoError(t, err)

	m.Hooks().OnRecompute(domain.RecomputeEvent{Pipeline: "p", Err: &domain.ActivationDivergenceError{Pipeline: "p", Passes: 3}})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Divergences.WithLabelValues("p")))
	assert.Equal(t, 0, testutil.CollectAndCount(m.Passes))
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := observability.LogHooks(logger)

	hooks.OnRecompute(domain.RecomputeEvent{Pipeline: "p", Passes: 2, Transitions: 4})
	assert.Contains(t, buf.String(), "activation recompute")
	assert.Contains(t, buf.String(), "transitions=4")

	buf.Reset()
	hooks.OnRecompute(domain.RecomputeEvent{Pipeline: "p", Err: &domain.ActivationDivergenceError{Pipeline: "p", Passes: 3}})
	assert.Contains(t, buf.String(), "level=WARN")
}
