package graph

import "github.com/aretw0/pipegraph/pkg/domain"

// LinkID is the stable handle of a link within its graph.
type LinkID int

// Plug is a named connection point on a node or on the graph boundary.
type Plug struct {
	node     string
	name     string
	dir      domain.Direction
	optional bool
	typeTag  string

	value    any
	hasValue bool
	raw      string

	// iterative plugs accept fan-in and carry a sequence at the boundary
	iterative bool

	activated bool
	stamp     int
	links     []LinkID
}

func newPlug(node string, p domain.ParamSpec) *Plug {
	return &Plug{
		node:     node,
		name:     p.Name,
		dir:      p.Direction(),
		optional: p.Optional,
		typeTag:  p.Type,
	}
}

func (p *Plug) Name() string                { return p.name }
func (p *Plug) Node() string                { return p.node }
func (p *Plug) Direction() domain.Direction { return p.dir }
func (p *Plug) Optional() bool              { return p.optional }
func (p *Plug) Type() string                { return p.typeTag }
func (p *Plug) Iterative() bool             { return p.iterative }
func (p *Plug) Activated() bool             { return p.activated }

// Value returns the value set on the plug, if any.
func (p *Plug) Value() (any, bool) { return p.value, p.hasValue }

// Raw returns the textual form of the value as it was declared.
func (p *Plug) Raw() string { return p.raw }

// Links returns the handles of the links attached to the plug.
func (p *Plug) Links() []LinkID {
	out := make([]LinkID, len(p.links))
	copy(out, p.links)
	return out
}

func (p *Plug) endpoint() domain.Endpoint {
	return domain.Endpoint{Node: p.node, Plug: p.name}
}

func (p *Plug) set(v bool, pass int) bool {
	if p.activated == v {
		return false
	}
	p.activated = v
	p.stamp = pass
	return true
}

func (p *Plug) detach(id LinkID) {
	for i, l := range p.links {
		if l == id {
			p.links = append(p.links[:i], p.links[i+1:]...)
			return
		}
	}
}

// Link is a directed edge between two plugs.
type Link struct {
	id        LinkID
	src       domain.Endpoint
	dst       domain.Endpoint
	weak      bool
	live      bool
	activated bool
}

func (l *Link) ID() LinkID              { return l.id }
func (l *Link) Source() domain.Endpoint { return l.src }
func (l *Link) Dest() domain.Endpoint   { return l.dst }
func (l *Link) Weak() bool              { return l.weak }
func (l *Link) Live() bool              { return l.live }
func (l *Link) Activated() bool         { return l.activated }
