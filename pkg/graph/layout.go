package graph

import "github.com/aretw0/pipegraph/pkg/domain"

// SetNodePosition records the layout position of a node or of one of the
// boundary boxes (InputsBox, OutputsBox). It has no effect on activation.
func (g *Graph) SetNodePosition(name string, x, y float64) error {
	if _, ok := g.nodes[name]; !ok && name != InputsBox && name != OutputsBox {
		return &domain.DanglingReferenceError{Kind: "node", Name: name}
	}
	if _, ok := g.positions[name]; !ok {
		g.posOrder = append(g.posOrder, name)
	}
	g.positions[name] = Position{X: x, Y: y}
	return nil
}

// Positions returns layout positions in the order they were first set.
func (g *Graph) Positions() []NamedPosition {
	out := make([]NamedPosition, 0, len(g.posOrder))
	for _, name := range g.posOrder {
		out = append(out, NamedPosition{Name: name, Position: g.positions[name]})
	}
	return out
}

// NamedPosition pairs a layout position with the node it belongs to.
type NamedPosition struct {
	Name string `json:"name"`
	Position
}

func (g *Graph) SetZoom(level float64) { g.zoom = &level }

// Zoom returns the zoom level, if one was set.
func (g *Graph) Zoom() (float64, bool) {
	if g.zoom == nil {
		return 0, false
	}
	return *g.zoom, true
}
