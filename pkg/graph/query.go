package graph

import (
	"sort"

	"github.com/aretw0/pipegraph/pkg/domain"
)

// NodeState is the activation of one node. The boundary of a pipeline is
// reported under the empty node name.
type NodeState struct {
	Kind      domain.NodeKind      `json:"kind,omitempty"`
	Activated bool                 `json:"activated"`
	Plugs     map[string]bool      `json:"plugs"`
	Children  map[string]NodeState `json:"children,omitempty"`
}

// ActivationState returns the activation of every node and plug, recomputing
// first if the graph changed.
func (g *Graph) ActivationState() (map[string]NodeState, error) {
	if err := g.ensure(); err != nil {
		return nil, err
	}
	return g.state(true), nil
}

func (g *Graph) state(top bool) map[string]NodeState {
	out := make(map[string]NodeState, len(g.order)+1)
	if top {
		b := NodeState{Activated: true, Plugs: make(map[string]bool, len(g.boundary.order))}
		for _, name := range g.boundary.order {
			b.Plugs[name] = g.boundary.plugs[name].activated
		}
		out[""] = b
	}
	for _, name := range g.order {
		n := g.nodes[name]
		c := n.core()
		ns := NodeState{Kind: n.Kind(), Activated: c.activated, Plugs: make(map[string]bool, len(c.plugs))}
		for pn, p := range c.plugs {
			ns.Plugs[pn] = p.activated
		}
		if pn, ok := n.(*PipelineNode); ok {
			ns.Children = pn.inner.state(false)
		}
		out[name] = ns
	}
	return out
}

type stateKey struct {
	node, plug string
}

// DiffStates lists the activation differences between two activation states.
// Elements missing from before count as deactivated; elements missing from
// after are ignored. Transitions carry no pass and are sorted by node then
// plug.
func DiffStates(before, after map[string]NodeState) []domain.Transition {
	prev := flatten("", before, make(map[stateKey]bool))
	next := flatten("", after, make(map[stateKey]bool))
	var out []domain.Transition
	for k, v := range next {
		if prev[k] != v {
			out = append(out, domain.Transition{Node: k.node, Plug: k.plug, Activated: v})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Node != out[j].Node {
			return out[i].Node < out[j].Node
		}
		return out[i].Plug < out[j].Plug
	})
	return out
}

func flatten(prefix string, states map[string]NodeState, out map[stateKey]bool) map[stateKey]bool {
	for name, ns := range states {
		full := prefix + name
		if name != "" {
			out[stateKey{node: full}] = ns.Activated
		}
		for plug, on := range ns.Plugs {
			out[stateKey{node: full, plug: plug}] = on
		}
		if ns.Children != nil {
			flatten(full+".", ns.Children, out)
		}
	}
	return out
}

// PlugInfo describes a plug.
type PlugInfo struct {
	Name      string `json:"name"`
	Direction string `json:"direction"`
	Optional  bool   `json:"optional,omitempty"`
	Type      string `json:"type,omitempty"`
	Iterative bool   `json:"iterative,omitempty"`
	Value     any    `json:"value,omitempty"`
	HasValue  bool   `json:"has_value,omitempty"`
	Activated bool   `json:"activated"`
}

// NodeInfo describes a node and its plugs.
type NodeInfo struct {
	Name      string          `json:"name"`
	Kind      domain.NodeKind `json:"kind"`
	Module    string          `json:"module,omitempty"`
	Enabled   bool            `json:"enabled"`
	Activated bool            `json:"activated"`
	Plugs     []PlugInfo      `json:"plugs"`
	// Switch nodes only.
	Alternatives []string `json:"alternatives,omitempty"`
	Selected     string   `json:"selected,omitempty"`
	// Iteration nodes only.
	Iterative []string `json:"iterative,omitempty"`
}

func plugInfo(p *Plug) PlugInfo {
	return PlugInfo{
		Name:      p.name,
		Direction: p.dir.String(),
		Optional:  p.optional,
		Type:      p.typeTag,
		Iterative: p.iterative,
		Value:     p.value,
		HasValue:  p.hasValue,
		Activated: p.activated,
	}
}

// ListNodes describes every node in insertion order.
func (g *Graph) ListNodes() ([]NodeInfo, error) {
	if err := g.ensure(); err != nil {
		return nil, err
	}
	out := make([]NodeInfo, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, describe(g.nodes[name]))
	}
	return out, nil
}

func describe(n Node) NodeInfo {
	c := n.core()
	info := NodeInfo{Name: c.name, Kind: n.Kind(), Enabled: c.enabled, Activated: c.activated}
	for _, p := range n.Plugs() {
		info.Plugs = append(info.Plugs, plugInfo(p))
	}
	switch v := n.(type) {
	case *ProcessNode:
		info.Module = v.Module()
	case *IterationNode:
		info.Module = v.Module()
		info.Iterative = v.Iterative()
	case *PipelineNode:
		info.Module = v.Module()
	case *Switch:
		info.Alternatives = v.Alternatives()
		info.Selected = v.Selected()
	}
	return info
}

// LinkInfo describes a link.
type LinkInfo struct {
	ID        LinkID `json:"id"`
	Source    string `json:"source"`
	Dest      string `json:"dest"`
	Weak      bool   `json:"weak,omitempty"`
	Live      bool   `json:"live"`
	Activated bool   `json:"activated"`
}

// ListLinks describes every link in creation order.
func (g *Graph) ListLinks() ([]LinkInfo, error) {
	if err := g.ensure(); err != nil {
		return nil, err
	}
	out := make([]LinkInfo, 0, len(g.linkSeq))
	for _, id := range g.linkSeq {
		l := g.links[id]
		out = append(out, LinkInfo{
			ID:        l.id,
			Source:    l.src.String(),
			Dest:      l.dst.String(),
			Weak:      l.weak,
			Live:      l.live,
			Activated: l.activated,
		})
	}
	return out, nil
}

// ExportInfo describes an exported plug and the inner plug it aliases.
type ExportInfo struct {
	Name      string `json:"name"`
	Direction string `json:"direction"`
	Target    string `json:"target"`
	Optional  bool   `json:"optional,omitempty"`
	Type      string `json:"type,omitempty"`
	Activated bool   `json:"activated"`
}

// ExportedPlugs describes the exported plugs in export order.
func (g *Graph) ExportedPlugs() ([]ExportInfo, error) {
	if err := g.ensure(); err != nil {
		return nil, err
	}
	out := make([]ExportInfo, 0, len(g.boundary.order))
	for _, name := range g.boundary.order {
		p := g.boundary.plugs[name]
		out = append(out, ExportInfo{
			Name:      name,
			Direction: p.dir.String(),
			Target:    g.exportTarget(name).String(),
			Optional:  p.optional,
			Type:      p.typeTag,
			Activated: p.activated,
		})
	}
	return out, nil
}

// SelectionInfo describes a selection parameter.
type SelectionInfo struct {
	Param    string  `json:"param"`
	Groups   []Group `json:"groups"`
	Selected string  `json:"selected"`
}
