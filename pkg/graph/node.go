package graph

import (
	"fmt"

	"github.com/aretw0/pipegraph/pkg/domain"
	"github.com/aretw0/pipegraph/pkg/schema"
)

// Node is the closed set of node variants: *ProcessNode, *PipelineNode,
// *Switch and *IterationNode.
type Node interface {
	Name() string
	Kind() domain.NodeKind
	Activated() bool
	Enabled() bool
	Plugs() []*Plug
	Plug(name string) (*Plug, bool)

	core() *nodeCore
	// recomputeLocal re-derives the node and its plugs from the current state
	// of the graph. It reports whether anything changed.
	recomputeLocal(g *Graph, pass int) (bool, error)
}

type nodeCore struct {
	name      string
	enabled   bool
	activated bool
	stamp     int
	plugs     map[string]*Plug
	order     []string
}

func newCore(name string) nodeCore {
	return nodeCore{name: name, enabled: true, plugs: make(map[string]*Plug)}
}

func (c *nodeCore) Name() string    { return c.name }
func (c *nodeCore) Activated() bool { return c.activated }
func (c *nodeCore) Enabled() bool   { return c.enabled }
func (c *nodeCore) core() *nodeCore { return c }

func (c *nodeCore) Plugs() []*Plug {
	out := make([]*Plug, 0, len(c.order))
	for _, n := range c.order {
		out = append(out, c.plugs[n])
	}
	return out
}

func (c *nodeCore) Plug(name string) (*Plug, bool) {
	p, ok := c.plugs[name]
	return p, ok
}

func (c *nodeCore) addPlug(p *Plug) {
	c.plugs[p.name] = p
	c.order = append(c.order, p.name)
}

func (c *nodeCore) set(v bool, pass int) bool {
	if c.activated == v {
		return false
	}
	c.activated = v
	c.stamp = pass
	return true
}

// settle derives plug activation for a plain node: inputs follow rule
// "node active and satisfied", outputs follow "node active and, if optional,
// live-linked".
func (c *nodeCore) settle(g *Graph, pass int) bool {
	changed := false
	for _, name := range c.order {
		p := c.plugs[name]
		var v bool
		if p.dir == domain.Input {
			v = c.activated && g.satisfied(p)
		} else {
			v = c.activated && (!p.optional || g.hasLiveLink(p))
		}
		changed = p.set(v, pass) || changed
	}
	return changed
}

func (c *nodeCore) requiredSatisfied(g *Graph) bool {
	for _, name := range c.order {
		p := c.plugs[name]
		if p.dir == domain.Input && !g.satisfied(p) {
			return false
		}
	}
	return true
}

// ProcessNode wraps a single computational unit. Each declared parameter is
// one plug.
type ProcessNode struct {
	nodeCore
	spec     domain.ProcessSpec
	adapters []domain.PlugAdapter
}

func newProcessNode(name string, spec domain.ProcessSpec) (*ProcessNode, error) {
	if _, err := schema.FromParams(spec.Params); err != nil {
		return nil, err
	}
	n := &ProcessNode{nodeCore: newCore(name), spec: spec}
	for _, p := range spec.Params {
		if err := checkName(p.Name); err != nil {
			return nil, err
		}
		if _, dup := n.plugs[p.Name]; dup {
			return nil, fmt.Errorf("%w: parameter %q of %s", domain.ErrDuplicateName, p.Name, name)
		}
		n.addPlug(newPlug(name, p))
	}
	return n, nil
}

func (n *ProcessNode) Kind() domain.NodeKind { return domain.KindProcess }

// Module returns the catalog reference of the wrapped unit.
func (n *ProcessNode) Module() string { return n.spec.Module }

// Spec returns the declaration the node was built from.
func (n *ProcessNode) Spec() domain.ProcessSpec { return n.spec }

// Adapters returns the per-plug adapter directives attached to the node.
func (n *ProcessNode) Adapters() []domain.PlugAdapter {
	return append([]domain.PlugAdapter(nil), n.adapters...)
}

func (n *ProcessNode) recomputeLocal(g *Graph, pass int) (bool, error) {
	changed := n.set(n.enabled && !g.deselected(n.name) && n.requiredSatisfied(g), pass)
	return n.settle(g, pass) || changed, nil
}

// IterationNode replicates a process over the values of its iterative plugs.
// Iterative plugs carry sequences; the first iterative input drives the
// number of iterations.
type IterationNode struct {
	ProcessNode
	iterative []string
}

func newIterationNode(name string, spec domain.ProcessSpec, iterative []string) (*IterationNode, error) {
	inner, err := newProcessNode(name, spec)
	if err != nil {
		return nil, err
	}
	if len(iterative) == 0 {
		return nil, &domain.DanglingReferenceError{Kind: "iterative plug", Name: name}
	}
	n := &IterationNode{ProcessNode: *inner, iterative: append([]string(nil), iterative...)}
	for _, it := range iterative {
		p, ok := n.plugs[it]
		if !ok {
			return nil, &domain.DanglingReferenceError{Kind: "plug", Name: name + "." + it}
		}
		if p.iterative {
			return nil, fmt.Errorf("%w: iterative plug %q", domain.ErrDuplicateName, it)
		}
		p.iterative = true
		p.typeTag = schema.SequenceOf(p.typeTag)
	}
	return n, nil
}

func (n *IterationNode) Kind() domain.NodeKind { return domain.KindIteration }

// Iterative returns the names of the iterative plugs, in declaration order.
func (n *IterationNode) Iterative() []string {
	return append([]string(nil), n.iterative...)
}

// Driver returns the plug whose sequence length sets the iteration count.
// Nil when every iterative plug is an output.
func (n *IterationNode) Driver() *Plug {
	for _, it := range n.iterative {
		if p := n.plugs[it]; p.dir == domain.Input {
			return p
		}
	}
	return nil
}

// Size returns the number of iterations, or -1 when the driving sequence is
// only known at run time.
func (n *IterationNode) Size() int {
	d := n.Driver()
	if d == nil || !d.hasValue || d.value == nil {
		return -1
	}
	if l, ok := schema.IsSequence(d.value); ok {
		return l
	}
	return -1
}

func (n *IterationNode) recomputeLocal(g *Graph, pass int) (bool, error) {
	active := n.enabled && !g.deselected(n.name) && n.requiredSatisfied(g)
	if d := n.Driver(); d != nil && active {
		active = g.satisfied(d) && n.Size() != 0
	}
	changed := n.set(active, pass)
	return n.settle(g, pass) || changed, nil
}

// Switch routes one of several alternatives to a shared set of outputs.
// Every alternative owns one input per output.
type Switch struct {
	nodeCore
	alternatives []string
	outputs      []string
	optional     bool
	selected     string
}

// NoSelection clears the selection of an optional switch.
const NoSelection = ""

func newSwitch(name string, spec domain.SwitchSpec) (*Switch, error) {
	if len(spec.Alternatives) == 0 || len(spec.Outputs) == 0 {
		return nil, &domain.DanglingReferenceError{Kind: "switch alternative", Name: name}
	}
	s := &Switch{
		nodeCore:     newCore(name),
		alternatives: append([]string(nil), spec.Alternatives...),
		outputs:      append([]string(nil), spec.Outputs...),
		optional:     spec.Optional,
	}
	for _, alt := range spec.Alternatives {
		if err := checkName(alt); err != nil {
			return nil, err
		}
		for _, out := range spec.Outputs {
			in := domain.SwitchInputName(alt, out)
			if _, dup := s.plugs[in]; dup {
				return nil, fmt.Errorf("%w: switch plug %q", domain.ErrDuplicateName, in)
			}
			s.addPlug(newPlug(name, domain.ParamSpec{Name: in}))
		}
	}
	for _, out := range spec.Outputs {
		if err := checkName(out); err != nil {
			return nil, err
		}
		if _, dup := s.plugs[out]; dup {
			return nil, fmt.Errorf("%w: switch plug %q", domain.ErrDuplicateName, out)
		}
		s.addPlug(newPlug(name, domain.ParamSpec{Name: out, Output: true}))
	}
	switch {
	case spec.Selected != "":
		if !s.has(spec.Selected) {
			return nil, s.unknown(spec.Selected)
		}
		s.selected = spec.Selected
	case !spec.Optional:
		s.selected = spec.Alternatives[0]
	}
	return s, nil
}

func (s *Switch) Kind() domain.NodeKind {
	if s.optional {
		return domain.KindOptionalSwitch
	}
	return domain.KindSwitch
}

func (s *Switch) Alternatives() []string { return append([]string(nil), s.alternatives...) }
func (s *Switch) Outputs() []string      { return append([]string(nil), s.outputs...) }
func (s *Switch) Optional() bool         { return s.optional }

// Selected returns the selected alternative, or NoSelection.
func (s *Switch) Selected() string { return s.selected }

func (s *Switch) has(alt string) bool {
	for _, a := range s.alternatives {
		if a == alt {
			return true
		}
	}
	return false
}

func (s *Switch) unknown(alt string) error {
	return &domain.UnknownAlternativeError{Switch: s.name, Alternative: alt, Declared: s.Alternatives()}
}

// alternativeOf returns the alternative owning an input plug, or "".
func (s *Switch) alternativeOf(plug string) string {
	p, ok := s.plugs[plug]
	if !ok || p.dir != domain.Input {
		return ""
	}
	for _, alt := range s.alternatives {
		for _, out := range s.outputs {
			if domain.SwitchInputName(alt, out) == plug {
				return alt
			}
		}
	}
	return ""
}

func (s *Switch) recomputeLocal(g *Graph, pass int) (bool, error) {
	base := s.enabled && !g.deselected(s.name) && s.selected != NoSelection
	active := false
	outs := make(map[string]bool, len(s.outputs))
	for _, out := range s.outputs {
		v := base && g.satisfied(s.plugs[domain.SwitchInputName(s.selected, out)])
		outs[out] = v
		active = active || v
	}
	changed := s.set(active, pass)
	for _, name := range s.order {
		p := s.plugs[name]
		var v bool
		if p.dir == domain.Output {
			v = outs[name]
		} else {
			v = s.activated && s.alternativeOf(name) == s.selected && g.satisfied(p)
		}
		changed = p.set(v, pass) || changed
	}
	return changed, nil
}

// PipelineNode embeds a nested graph. Its plugs follow the exports of the
// nested graph: every recompute of the enclosing graph adds plugs for new
// exports and drops the plugs, with their links, of exports that are gone.
type PipelineNode struct {
	nodeCore
	module string
	inner  *Graph
}

func newPipelineNode(name, module string, inner *Graph) (*PipelineNode, error) {
	if inner == nil {
		return nil, &domain.DanglingReferenceError{Kind: "pipeline", Name: name}
	}
	n := &PipelineNode{nodeCore: newCore(name), module: module, inner: inner}
	inner.syncPipelines()
	n.sync(nil)
	return n, nil
}

// sync aligns the plugs of n with the current exports of the nested graph.
// Links of g on plugs that disappeared are removed. A plug with a value of
// its own keeps its optionality.
func (n *PipelineNode) sync(g *Graph) {
	for _, name := range append([]string(nil), n.order...) {
		p := n.plugs[name]
		if bp, ok := n.inner.boundary.plugs[name]; ok && bp.dir == p.dir {
			continue
		}
		if g != nil {
			for _, id := range p.Links() {
				g.removeLink(id)
			}
		}
		delete(n.plugs, name)
		n.order = remove(n.order, name)
	}
	for _, name := range n.inner.boundary.order {
		bp := n.inner.boundary.plugs[name]
		p, ok := n.plugs[name]
		if !ok {
			p = &Plug{node: n.name, name: name, dir: bp.dir}
			n.addPlug(p)
		}
		if !p.hasValue {
			p.optional = bp.optional
		}
		p.typeTag, p.iterative = bp.typeTag, bp.iterative
	}
}

func (n *PipelineNode) Kind() domain.NodeKind { return domain.KindPipeline }

// Inner returns the nested graph.
func (n *PipelineNode) Inner() *Graph { return n.inner }

// Module returns the catalog reference the nested graph was loaded from, if any.
func (n *PipelineNode) Module() string { return n.module }

func (n *PipelineNode) recomputeLocal(g *Graph, pass int) (bool, error) {
	open := n.enabled && !g.deselected(n.name) && n.requiredSatisfied(g)
	drive := make(map[string]bool)
	for _, name := range n.order {
		if p := n.plugs[name]; p.dir == domain.Input {
			drive[name] = open && g.satisfied(p)
		}
	}

	var changed bool
	if open {
		c, err := n.inner.propagate(drive, pass)
		if err != nil {
			return false, err
		}
		changed = c
		open = len(n.inner.order) == 0 || n.inner.anyActive()
	}
	if !open {
		changed = n.inner.suppress(pass) || changed
	}
	changed = n.set(open, pass) || changed

	for _, name := range n.order {
		p := n.plugs[name]
		var v bool
		if p.dir == domain.Input {
			v = n.activated && g.satisfied(p)
		} else if bp, ok := n.inner.boundary.plugs[name]; ok {
			v = n.activated && bp.activated
		}
		changed = p.set(v, pass) || changed
	}
	return changed, nil
}
