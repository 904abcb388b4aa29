/*
Package graph implements the pipeline graph and its activation engine.

A Graph owns nodes (processes, nested pipelines, switches and iteration nodes),
the plugs declared on them, the links between plugs, and the plugs exported on
its own boundary. Entities are stored in an arena and addressed by name
(nodes, plugs) or by LinkID, so removals never have to untangle pointers.

# Activation

Activation is a derived boolean carried by every node, plug and link. The
engine computes the greatest consistent assignment: everything starts
activated and sweeps over the nodes (in dependency order) deactivate whatever
cannot be satisfied, until a sweep changes nothing. Sweeps are capped at the
number of nodes plus one; hitting the cap yields an ActivationDivergenceError.

Mutations only mark the graph dirty. Queries recompute lazily, so a caller
never observes a partially propagated state. SetSwitchSelection recomputes
eagerly and reports the recompute error.

A Graph is not safe for concurrent use. Serialize edits externally (see
pkg/session).
*/
package graph
