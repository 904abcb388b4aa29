/*
Package pipegraph models processing pipelines as graphs and computes which of
their parts are active.

A pipeline is a set of nodes (processes, iterations, switches and nested
pipelines) whose plugs are joined by links. Edits such as disabling a node,
selecting a switch alternative or setting a plug value change which nodes
can run. The activation engine derives that from the graph alone, as the
greatest fixed point of the activation rules, and reports every transition.

# Architecture

The graph and its engine live in pkg/graph. Pipelines are built with the
GraphBuilder (pkg/dsl) or decoded from declarative XML or YAML documents
(pkg/codec). Module declarations come from a ports.Catalog: in memory, or a
directory read through Loam. Stored pipelines are served over HTTP and MCP
by pkg/session and the adapters in pkg/adapters.

# Usage

	g, err := pipegraph.Open(ctx, "preproc.yaml", pipegraph.WithCatalogDir("./modules"))
	if err != nil {
		log.Fatal(err)
	}
	if err := g.SetSwitchSelection("method", "spm"); err != nil {
		log.Fatal(err)
	}
	state, err := g.ActivationState()
	if err != nil {
		log.Fatal(err) // activation did not converge
	}
	fmt.Println(state["smooth"].Activated)

The pipegraph command (cmd/pipegraph) wraps the same operations: validate,
activation, graph, convert, record, replay, check, watch, serve and mcp.
*/
package pipegraph
