package graph

import (
	"time"

	"github.com/aretw0/pipegraph/pkg/domain"
)

// Recompute derives activation for the whole graph, nested pipelines
// included, and notifies hooks of the transitions since the last recompute.
// Running it twice without an edit in between yields the same state and no
// transitions.
func (g *Graph) Recompute() error {
	start := time.Now()
	g.syncPipelines()
	g.reset()
	passes, _, err := g.fixpoint(nil, 0)
	if err != nil {
		g.dirty = true
		if g.hooks.OnRecompute != nil {
			g.hooks.OnRecompute(domain.RecomputeEvent{Pipeline: g.name, Passes: passes, Duration: time.Since(start), Err: err})
		}
		return err
	}
	g.settleLinks()
	g.markClean()

	transitions := g.publish()
	for _, t := range transitions {
		if g.hooks.OnTransition != nil {
			g.hooks.OnTransition(t)
		}
	}
	g.logger.Debug("activation recomputed",
		"pipeline", g.name,
		"passes", passes,
		"transitions", len(transitions),
	)
	if g.hooks.OnRecompute != nil {
		g.hooks.OnRecompute(domain.RecomputeEvent{
			Pipeline:    g.name,
			Passes:      passes,
			Transitions: len(transitions),
			Duration:    time.Since(start),
		})
	}
	return nil
}

// ensure recomputes if any edit happened since the last recompute.
func (g *Graph) ensure() error {
	if !g.isDirty() {
		return nil
	}
	return g.Recompute()
}

// reset activates every element, nested graphs included.
func (g *Graph) reset() {
	for _, name := range g.boundary.order {
		p := g.boundary.plugs[name]
		p.activated, p.stamp = true, 0
	}
	for _, name := range g.order {
		c := g.nodes[name].core()
		c.activated, c.stamp = true, 0
		for _, p := range c.plugs {
			p.activated, p.stamp = true, 0
		}
		if pn, ok := g.nodes[name].(*PipelineNode); ok {
			pn.inner.reset()
		}
	}
	for _, l := range g.links {
		l.live, l.activated = false, false
	}
}

func (g *Graph) limit() int {
	if g.passCap > 0 {
		return g.passCap
	}
	return len(g.order) + 1
}

// fixpoint sweeps the nodes until nothing changes. drive gives the
// availability of exported inputs when the graph is nested (nil means all
// available). A nested graph stamps its changes with the outer pass.
func (g *Graph) fixpoint(drive map[string]bool, outer int) (int, bool, error) {
	if g.schedule == nil {
		g.schedule = g.topological()
	}
	order := g.schedule

	limit := g.limit()
	changedAny := false
	for pass := 1; ; pass++ {
		if pass > limit {
			return limit, changedAny, &domain.ActivationDivergenceError{Pipeline: g.name, Passes: limit}
		}
		stamp := pass
		if outer > 0 {
			stamp = outer
		}

		changed := false
		for _, name := range g.boundary.order {
			if p := g.boundary.plugs[name]; p.dir == domain.Input {
				changed = p.set(drive == nil || drive[name], stamp) || changed
			}
		}
		for _, name := range order {
			c, err := g.nodes[name].recomputeLocal(g, stamp)
			if err != nil {
				return pass, changedAny, err
			}
			changed = c || changed
		}
		for _, name := range g.boundary.order {
			if p := g.boundary.plugs[name]; p.dir == domain.Output {
				changed = p.set(g.fed(p), stamp) || changed
			}
		}

		changedAny = changedAny || changed
		if !changed {
			return pass, changedAny, nil
		}
	}
}

// propagate runs a nested graph for one pass of its parent. The nested graph
// keeps its state between parent passes: inputs only ever get withdrawn, so
// continuing from the previous state reaches the same fixed point.
func (g *Graph) propagate(drive map[string]bool, outer int) (bool, error) {
	_, changed, err := g.fixpoint(drive, outer)
	return changed, err
}

// suppress deactivates everything in a nested graph whose node is inactive.
func (g *Graph) suppress(pass int) bool {
	changed := false
	for _, name := range g.boundary.order {
		changed = g.boundary.plugs[name].set(false, pass) || changed
	}
	for _, name := range g.order {
		n := g.nodes[name]
		c := n.core()
		changed = c.set(false, pass) || changed
		for _, p := range c.plugs {
			changed = p.set(false, pass) || changed
		}
		if pn, ok := n.(*PipelineNode); ok {
			changed = pn.inner.suppress(pass) || changed
		}
	}
	return changed
}

func (g *Graph) anyActive() bool {
	for _, name := range g.order {
		if g.nodes[name].Activated() {
			return true
		}
	}
	return false
}

// satisfied reports whether an input can receive data: it is optional, or a
// routed non-weak link brings data from an activated plug.
func (g *Graph) satisfied(p *Plug) bool {
	return p.optional || g.fed(p)
}

func (g *Graph) fed(p *Plug) bool {
	dst := p.endpoint()
	for _, id := range p.links {
		l := g.links[id]
		if l.weak || l.dst != dst || !g.routed(l) {
			continue
		}
		if sp, ok := g.plugAt(l.src); ok && sp.activated {
			return true
		}
	}
	return false
}

func (g *Graph) hasLiveLink(p *Plug) bool {
	for _, id := range p.links {
		l := g.links[id]
		if !l.weak && g.routed(l) {
			return true
		}
	}
	return false
}

// settleLinks derives link state once plugs are final. A weak link is live
// only when both of its plugs were activated without it.
func (g *Graph) settleLinks() {
	for _, id := range g.linkSeq {
		l := g.links[id]
		sp, _ := g.plugAt(l.src)
		dp, _ := g.plugAt(l.dst)
		both := sp != nil && dp != nil && sp.activated && dp.activated
		if l.weak {
			l.live = both
		} else {
			l.live = g.routed(l)
		}
		l.activated = l.live && both
	}
	for _, name := range g.order {
		if pn, ok := g.nodes[name].(*PipelineNode); ok {
			pn.inner.settleLinks()
		}
	}
}

// topological orders nodes so that producers come before consumers. Nodes on
// cycles keep their insertion order after the acyclic part.
func (g *Graph) topological() []string {
	inDegree := make(map[string]int, len(g.order))
	next := make(map[string][]string, len(g.order))
	seen := make(map[[2]string]bool)
	for _, id := range g.linkSeq {
		l := g.links[id]
		if l.src.IsBoundary() || l.dst.IsBoundary() || l.src.Node == l.dst.Node {
			continue
		}
		edge := [2]string{l.src.Node, l.dst.Node}
		if seen[edge] {
			continue
		}
		seen[edge] = true
		next[l.src.Node] = append(next[l.src.Node], l.dst.Node)
		inDegree[l.dst.Node]++
	}

	sorted := make([]string, 0, len(g.order))
	done := make(map[string]bool, len(g.order))
	for len(sorted) < len(g.order) {
		progressed := false
		for _, name := range g.order {
			if done[name] || inDegree[name] > 0 {
				continue
			}
			done[name] = true
			sorted = append(sorted, name)
			for _, m := range next[name] {
				inDegree[m]--
			}
			progressed = true
			break
		}
		if progressed {
			continue
		}
		// cycle: release the earliest remaining node
		for _, name := range g.order {
			if !done[name] {
				inDegree[name] = 0
				break
			}
		}
	}
	return sorted
}
