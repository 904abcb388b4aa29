package codec

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/pipegraph/internal/logging"
	"github.com/aretw0/pipegraph/pkg/domain"
	"github.com/aretw0/pipegraph/pkg/dsl"
	"github.com/aretw0/pipegraph/pkg/graph"
	"github.com/aretw0/pipegraph/pkg/ports"
)

type config struct {
	catalog ports.Catalog
	logger  *slog.Logger
	gopts   []graph.Option
	// modules being expanded, to reject pipelines that contain themselves
	stack []string
}

// Option configures Build.
type Option func(*config)

// WithCatalog sets the catalog resolving process modules.
func WithCatalog(c ports.Catalog) Option {
	return func(cfg *config) {
		cfg.catalog = c
	}
}

// WithLogger sets the logger for the builder and the graph.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithGraphOptions forwards options to the top-level graph.
func WithGraphOptions(opts ...graph.Option) Option {
	return func(cfg *config) {
		cfg.gopts = append(cfg.gopts, opts...)
	}
}

// Build replays a document through a dsl.Builder. Entries are applied in
// document order, so links must come after the nodes they reference.
func Build(ctx context.Context, doc *Document, opts ...Option) (*graph.Graph, error) {
	cfg := &config{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg.build(ctx, doc, true)
}

func (cfg *config) build(ctx context.Context, doc *Document, top bool) (*graph.Graph, error) {
	if err := checkVersion(doc.Version); err != nil {
		return nil, err
	}
	bopts := []dsl.Option{
		dsl.WithLogger(cfg.logger),
		dsl.WithResolver(cfg.resolve),
	}
	if cfg.catalog != nil {
		bopts = append(bopts, dsl.WithCatalog(cfg.catalog))
	}
	if top {
		bopts = append(bopts, dsl.WithGraphOptions(cfg.gopts...))
	}
	b := dsl.New(doc.Name, bopts...)
	if err := b.SetDocumentation(doc.Doc); err != nil {
		return nil, err
	}

	for _, e := range doc.Entries {
		if err := cfg.apply(ctx, b, e); err != nil {
			return nil, err
		}
	}
	return b.Finish()
}

func (cfg *config) apply(ctx context.Context, b *dsl.Builder, e Entry) error {
	switch e := e.(type) {
	case ProcessEntry:
		if err := b.AddProcess(ctx, e.Name, e.Module, e.Sets, e.Iterate...); err != nil {
			return fmt.Errorf("process %s: %w", e.Name, err)
		}
		for _, a := range e.Adapters {
			if err := b.SetAdapter(e.Name, a); err != nil {
				return fmt.Errorf("process %s: %w", e.Name, err)
			}
		}
	case SwitchEntry:
		kind := domain.KindSwitch
		if e.Optional {
			kind = domain.KindOptionalSwitch
		}
		spec := domain.SwitchSpec{Alternatives: e.Alternatives, Outputs: e.Outputs, Selected: e.Selected}
		if err := b.AddNode(kind, e.Name, spec); err != nil {
			return fmt.Errorf("switch %s: %w", e.Name, err)
		}
	case LinkEntry:
		var opts []dsl.LinkOption
		if e.Weak {
			opts = append(opts, dsl.Weak())
		}
		if err := b.AddLink(e.Source, e.Dest, opts...); err != nil {
			return err
		}
	case SelectionEntry:
		if err := b.DeclareSelectionGroup(e.Param, e.Groups); err != nil {
			return err
		}
		if e.Selected != "" {
			return b.SelectGroup(e.Param, e.Selected)
		}
	case PipelineEntry:
		if e.Pipeline == nil {
			return &domain.DanglingReferenceError{Kind: "pipeline", Name: e.Name}
		}
		inner, err := cfg.build(ctx, e.Pipeline, false)
		if err != nil {
			return fmt.Errorf("pipeline %s: %w", e.Name, err)
		}
		return b.AddNode(domain.KindPipeline, e.Name, inner)
	case GUIEntry:
		for _, p := range e.Positions {
			if err := b.SetNodePosition(p.Name, p.X, p.Y); err != nil {
				return err
			}
		}
		if e.Zoom != nil {
			return b.SetZoom(*e.Zoom)
		}
	default:
		return fmt.Errorf("%w: entry %T", domain.ErrUnsupportedDeclaration, e)
	}
	return nil
}

// resolve builds the nested graph of a catalog entry describing a pipeline.
func (cfg *config) resolve(ctx context.Context, spec domain.ProcessSpec) (*graph.Graph, error) {
	for _, m := range cfg.stack {
		if m == spec.Module {
			return nil, fmt.Errorf("%w: pipeline module %q contains itself", domain.ErrUnsupportedDeclaration, spec.Module)
		}
	}
	c, err := ForFormat(spec.Format)
	if err != nil {
		c = Detect([]byte(spec.Document))
	}
	doc, err := c.Decode(bytes.NewReader([]byte(spec.Document)))
	if err != nil {
		return nil, err
	}
	if doc.Name == "" {
		doc.Name = spec.Module
	}
	cfg.stack = append(cfg.stack, spec.Module)
	defer func() { cfg.stack = cfg.stack[:len(cfg.stack)-1] }()
	return cfg.build(ctx, doc, false)
}

// FromGraph walks a graph into a document: node declarations in insertion
// order, then links in creation order, then selections and layout.
func FromGraph(g *graph.Graph) *Document {
	doc := &Document{Name: g.Name(), Doc: g.Documentation(), Version: Version}

	for _, n := range g.Nodes() {
		switch v := n.(type) {
		case *graph.IterationNode:
			e := processEntry(v.Name(), v.Module(), v.Plugs())
			e.Iterate = v.Iterative()
			e.Adapters = v.Adapters()
			doc.Entries = append(doc.Entries, e)
		case *graph.ProcessNode:
			e := processEntry(v.Name(), v.Module(), v.Plugs())
			e.Adapters = v.Adapters()
			doc.Entries = append(doc.Entries, e)
		case *graph.Switch:
			doc.Entries = append(doc.Entries, SwitchEntry{
				Name:         v.Name(),
				Alternatives: v.Alternatives(),
				Outputs:      v.Outputs(),
				Optional:     v.Optional(),
				Selected:     v.Selected(),
			})
		case *graph.PipelineNode:
			if v.Module() != "" {
				doc.Entries = append(doc.Entries, processEntry(v.Name(), v.Module(), v.Plugs()))
				continue
			}
			doc.Entries = append(doc.Entries, PipelineEntry{Name: v.Name(), Pipeline: FromGraph(v.Inner())})
		}
	}

	for _, l := range g.Links() {
		doc.Entries = append(doc.Entries, LinkEntry{Source: l.Source().String(), Dest: l.Dest().String(), Weak: l.Weak()})
	}

	for _, sel := range g.SelectionGroups() {
		e := SelectionEntry{Param: sel.Param, Groups: sel.Groups}
		if sel.Selected != sel.Groups[0].Name {
			e.Selected = sel.Selected
		}
		doc.Entries = append(doc.Entries, e)
	}

	positions := g.Positions()
	zoom, hasZoom := g.Zoom()
	if len(positions) > 0 || hasZoom {
		gui := GUIEntry{Positions: positions}
		if hasZoom {
			gui.Zoom = &zoom
		}
		doc.Entries = append(doc.Entries, gui)
	}
	return doc
}

func processEntry(name, module string, plugs []*graph.Plug) ProcessEntry {
	e := ProcessEntry{Name: name, Module: module}
	for _, p := range plugs {
		if _, ok := p.Value(); ok {
			e.Sets = append(e.Sets, domain.Override{Name: p.Name(), Raw: p.Raw()})
		}
	}
	return e
}
