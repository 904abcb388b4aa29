package graph

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/aretw0/pipegraph/internal/logging"
	"github.com/aretw0/pipegraph/pkg/domain"
)

// Reserved position names for the boundary boxes of a pipeline.
const (
	InputsBox  = "inputs"
	OutputsBox = "outputs"
)

type boundary struct {
	plugs map[string]*Plug
	order []string
	// alias maps an exported name to the link binding it to the inner plug.
	alias map[string]LinkID
}

// Group is one named set of nodes of a selection parameter.
type Group struct {
	Name  string   `json:"name"`
	Nodes []string `json:"nodes"`
}

type selection struct {
	param    string
	groups   []Group
	selected int
}

// Position is pass-through layout metadata.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Graph is a pipeline: nodes, links and exported plugs.
type Graph struct {
	name string
	id   string
	doc  string

	nodes map[string]Node
	order []string

	boundary boundary

	links    map[LinkID]*Link
	linkSeq  []LinkID
	nextLink LinkID

	selections []*selection

	positions map[string]Position
	posOrder  []string
	zoom      *float64

	dirty    bool
	schedule []string
	passCap  int

	published map[string]bool

	logger *slog.Logger
	hooks  domain.ActivationHooks
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger used for debug traces of the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) {
		g.logger = logger
	}
}

// WithHooks registers activation hooks.
func WithHooks(hooks domain.ActivationHooks) Option {
	return func(g *Graph) {
		g.hooks = g.hooks.Merge(hooks)
	}
}

// WithID overrides the generated pipeline identifier.
func WithID(id string) Option {
	return func(g *Graph) {
		g.id = id
	}
}

// New creates an empty pipeline graph.
func New(name string, opts ...Option) *Graph {
	g := &Graph{
		name:      name,
		id:        uuid.NewString(),
		nodes:     make(map[string]Node),
		boundary:  boundary{plugs: make(map[string]*Plug), alias: make(map[string]LinkID)},
		links:     make(map[LinkID]*Link),
		nextLink:  1,
		positions: make(map[string]Position),
		dirty:     true,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Graph) Name() string { return g.name }

// ID identifies this pipeline instance in activation records.
func (g *Graph) ID() string { return g.id }

func (g *Graph) Documentation() string       { return g.doc }
func (g *Graph) SetDocumentation(doc string) { g.doc = doc }

// Observe adds activation hooks after construction.
func (g *Graph) Observe(hooks domain.ActivationHooks) {
	g.hooks = g.hooks.Merge(hooks)
}

// Node returns the node with the given name.
func (g *Graph) Node(name string) (Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.nodes[name])
	}
	return out
}

// Link returns the link with the given handle.
func (g *Graph) Link(id LinkID) (*Link, bool) {
	l, ok := g.links[id]
	return l, ok
}

// Links returns the links in creation order.
func (g *Graph) Links() []*Link {
	out := make([]*Link, 0, len(g.linkSeq))
	for _, id := range g.linkSeq {
		out = append(out, g.links[id])
	}
	return out
}

func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, ". \t\n:") {
		return fmt.Errorf("%w: %q", domain.ErrInvalidName, name)
	}
	return nil
}

func (g *Graph) insert(n Node) error {
	name := n.Name()
	if err := checkName(name); err != nil {
		return err
	}
	if name == InputsBox || name == OutputsBox {
		return fmt.Errorf("%w: %q is reserved", domain.ErrInvalidName, name)
	}
	if _, exists := g.nodes[name]; exists {
		return fmt.Errorf("%w: node %q", domain.ErrDuplicateName, name)
	}
	g.nodes[name] = n
	g.order = append(g.order, name)
	g.touch()
	g.logger.Debug("node added", "pipeline", g.name, "node", name, "kind", n.Kind())
	return nil
}

// AddProcess adds a process node built from spec.
func (g *Graph) AddProcess(name string, spec domain.ProcessSpec) (*ProcessNode, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	n, err := newProcessNode(name, spec)
	if err != nil {
		return nil, err
	}
	return n, g.insert(n)
}

// AddIteration adds an iteration node over the given iterative plugs.
func (g *Graph) AddIteration(name string, spec domain.ProcessSpec, iterative []string) (*IterationNode, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	n, err := newIterationNode(name, spec, iterative)
	if err != nil {
		return nil, err
	}
	return n, g.insert(n)
}

// AddSwitch adds a switch node. Optional switches may be left unselected.
func (g *Graph) AddSwitch(name string, spec domain.SwitchSpec) (*Switch, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	n, err := newSwitch(name, spec)
	if err != nil {
		return nil, err
	}
	return n, g.insert(n)
}

// AddPipeline embeds inner as a composite node. The graph takes ownership of
// inner.
func (g *Graph) AddPipeline(name, module string, inner *Graph) (*PipelineNode, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if inner == g {
		return nil, fmt.Errorf("%w: pipeline %q cannot contain itself", domain.ErrInvalidName, name)
	}
	n, err := newPipelineNode(name, module, inner)
	if err != nil {
		return nil, err
	}
	return n, g.insert(n)
}

// RemoveNode deletes a node with its links, layout and group memberships.
func (g *Graph) RemoveNode(name string) error {
	n, ok := g.nodes[name]
	if !ok {
		return &domain.DanglingReferenceError{Kind: "node", Name: name}
	}
	for _, p := range n.Plugs() {
		for _, id := range p.Links() {
			g.removeLink(id)
		}
	}
	delete(g.nodes, name)
	g.order = remove(g.order, name)
	for _, sel := range g.selections {
		for i := range sel.groups {
			sel.groups[i].Nodes = remove(sel.groups[i].Nodes, name)
		}
	}
	if _, ok := g.positions[name]; ok {
		delete(g.positions, name)
		g.posOrder = remove(g.posOrder, name)
	}
	g.touch()
	return nil
}

// SetNodeEnabled enables or disables a node. A disabled node is deactivated
// whatever its inputs.
func (g *Graph) SetNodeEnabled(name string, enabled bool) error {
	n, ok := g.nodes[name]
	if !ok {
		return &domain.DanglingReferenceError{Kind: "node", Name: name}
	}
	n.core().enabled = enabled
	g.touch()
	return nil
}

func (g *Graph) touch() {
	g.dirty = true
	g.schedule = nil
}

func (g *Graph) isDirty() bool {
	if g.dirty {
		return true
	}
	for _, name := range g.order {
		if p, ok := g.nodes[name].(*PipelineNode); ok && p.inner.isDirty() {
			return true
		}
	}
	return false
}

func (g *Graph) markClean() {
	g.dirty = false
	for _, name := range g.order {
		if p, ok := g.nodes[name].(*PipelineNode); ok {
			p.inner.markClean()
		}
	}
}

// plugAt resolves an endpoint to a plug.
func (g *Graph) plugAt(ep domain.Endpoint) (*Plug, bool) {
	if ep.IsBoundary() {
		p, ok := g.boundary.plugs[ep.Plug]
		return p, ok
	}
	n, ok := g.nodes[ep.Node]
	if !ok {
		return nil, false
	}
	return n.Plug(ep.Plug)
}

func remove(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
