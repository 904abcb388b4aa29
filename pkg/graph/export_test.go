package graph

// SetPassCap lowers the sweep limit so tests can provoke divergence.
func SetPassCap(g *Graph, n int) { g.passCap = n }
