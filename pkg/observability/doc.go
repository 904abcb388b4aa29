/*
Package observability turns activation hooks into Prometheus metrics and
structured log records.

Both helpers return domain.ActivationHooks, so they can be merged and handed
to graph.WithHooks or session.WithHooks:

	m, _ := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := m.Hooks().Merge(observability.LogHooks(logger))
*/
package observability
