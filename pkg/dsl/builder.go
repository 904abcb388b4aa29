package dsl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/pipegraph/internal/logging"
	"github.com/aretw0/pipegraph/pkg/domain"
	"github.com/aretw0/pipegraph/pkg/graph"
	"github.com/aretw0/pipegraph/pkg/ports"
	"github.com/aretw0/pipegraph/pkg/schema"
)

// ErrFinished is returned by every call made after Finish.
var ErrFinished = errors.New("builder already finished")

// Resolver builds the nested graph of a catalog entry describing a pipeline.
type Resolver func(ctx context.Context, spec domain.ProcessSpec) (*graph.Graph, error)

// IterationSpec is the spec accepted by AddNode for iteration nodes.
type IterationSpec struct {
	Process   domain.ProcessSpec
	Iterative []string
}

// Builder manages the construction of one pipeline graph.
type Builder struct {
	g        *graph.Graph
	catalog  ports.Catalog
	resolver Resolver
	logger   *slog.Logger
	gopts    []graph.Option
	finished bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithCatalog sets the catalog used to resolve process modules.
func WithCatalog(c ports.Catalog) Option {
	return func(b *Builder) {
		b.catalog = c
	}
}

// WithResolver sets how catalog entries describing pipelines are built.
func WithResolver(r Resolver) Option {
	return func(b *Builder) {
		b.resolver = r
	}
}

// WithLogger sets the logger handed to the graph.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithGraphOptions forwards options to the graph under construction.
func WithGraphOptions(opts ...graph.Option) Option {
	return func(b *Builder) {
		b.gopts = append(b.gopts, opts...)
	}
}

// New creates a builder for a pipeline named name.
func New(name string, opts ...Option) *Builder {
	b := &Builder{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	gopts := append([]graph.Option{graph.WithLogger(b.logger)}, b.gopts...)
	b.g = graph.New(name, gopts...)
	return b
}

func (b *Builder) check() error {
	if b.finished {
		return ErrFinished
	}
	return nil
}

// AddNode adds a node of the given kind. The accepted spec depends on kind:
//
//	KindProcess         domain.ProcessSpec
//	KindIteration       IterationSpec
//	KindSwitch          domain.SwitchSpec (Optional is forced to false)
//	KindOptionalSwitch  domain.SwitchSpec (Optional is forced to true)
//	KindPipeline        *graph.Graph
func (b *Builder) AddNode(kind domain.NodeKind, name string, spec any) error {
	if err := b.check(); err != nil {
		return err
	}
	var err error
	switch kind {
	case domain.KindProcess:
		ps, ok := spec.(domain.ProcessSpec)
		if !ok {
			return specError(kind, spec)
		}
		_, err = b.g.AddProcess(name, ps)
	case domain.KindIteration:
		is, ok := spec.(IterationSpec)
		if !ok {
			return specError(kind, spec)
		}
		_, err = b.g.AddIteration(name, is.Process, is.Iterative)
	case domain.KindSwitch, domain.KindOptionalSwitch:
		ss, ok := spec.(domain.SwitchSpec)
		if !ok {
			return specError(kind, spec)
		}
		ss.Optional = kind == domain.KindOptionalSwitch
		_, err = b.g.AddSwitch(name, ss)
	case domain.KindPipeline:
		inner, ok := spec.(*graph.Graph)
		if !ok {
			return specError(kind, spec)
		}
		_, err = b.g.AddPipeline(name, "", inner)
	default:
		return fmt.Errorf("%w: node kind %q", domain.ErrUnsupportedDeclaration, kind)
	}
	return err
}

func specError(kind domain.NodeKind, spec any) error {
	return fmt.Errorf("%w: %T is not a %s spec", domain.ErrUnsupportedDeclaration, spec, kind)
}

// AddIterationNode adds a node iterating spec over the given plugs.
func (b *Builder) AddIterationNode(name string, spec domain.ProcessSpec, iterative []string) error {
	return b.AddNode(domain.KindIteration, name, IterationSpec{Process: spec, Iterative: iterative})
}

// AddProcess resolves module through the catalog and adds it under name,
// applying overrides. A catalog entry describing a pipeline becomes a nested
// pipeline node. When iterative is not empty the process is wrapped in an
// iteration node.
func (b *Builder) AddProcess(ctx context.Context, name, module string, overrides []domain.Override, iterative ...string) error {
	if err := b.check(); err != nil {
		return err
	}
	if b.catalog == nil {
		return fmt.Errorf("resolve %s: %w (no catalog configured)", module, domain.ErrModuleNotFound)
	}
	spec, err := b.catalog.Lookup(ctx, module)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", module, err)
	}

	switch {
	case spec.IsPipeline():
		if len(iterative) > 0 {
			return fmt.Errorf("%w: iterating pipeline %q", domain.ErrUnsupportedDeclaration, module)
		}
		if b.resolver == nil {
			return fmt.Errorf("%w: no resolver for pipeline module %q", domain.ErrUnsupportedDeclaration, module)
		}
		inner, err := b.resolver(ctx, spec)
		if err != nil {
			return fmt.Errorf("build %s: %w", module, err)
		}
		if _, err := b.g.AddPipeline(name, module, inner); err != nil {
			return err
		}
	case len(iterative) > 0:
		if err := b.AddIterationNode(name, spec, iterative); err != nil {
			return err
		}
	default:
		if len(overrides) > 0 {
			// all bad values at once, before the node exists
			params, err := schema.FromParams(spec.Params)
			if err != nil {
				return fmt.Errorf("module %s: %w", module, err)
			}
			if _, err := schema.ValidateOverrides(params, overrides); err != nil {
				return fmt.Errorf("process %s: %w", name, err)
			}
		}
		if err := b.AddNode(domain.KindProcess, name, spec); err != nil {
			return err
		}
	}
	return b.SetOverrides(name, overrides)
}

// SetOverrides applies parameter overrides to an existing node. An
// overridden parameter becomes optional.
func (b *Builder) SetOverrides(name string, overrides []domain.Override) error {
	if err := b.check(); err != nil {
		return err
	}
	for _, o := range overrides {
		if err := b.g.Override(name, o); err != nil {
			return err
		}
	}
	return nil
}

// SetAdapter attaches an adapter directive to a plug of a process node.
func (b *Builder) SetAdapter(name string, a domain.PlugAdapter) error {
	if err := b.check(); err != nil {
		return err
	}
	return b.g.SetAdapter(name, a)
}

// LinkOption configures AddLink.
type LinkOption func(*linkOptions)

type linkOptions struct {
	weak bool
}

// Weak marks the link as weak: it passes values but never causes activation.
func Weak() LinkOption {
	return func(o *linkOptions) {
		o.weak = true
	}
}

// AddLink links two endpoints ("node.plug" or a bare exported name). When one
// side is a bare name that is not exported yet, the other side is exported
// under that name instead.
func (b *Builder) AddLink(source, dest string, opts ...LinkOption) error {
	if err := b.check(); err != nil {
		return err
	}
	var o linkOptions
	for _, opt := range opts {
		opt(&o)
	}
	src, dst := domain.ParseEndpoint(source), domain.ParseEndpoint(dest)

	var bare, inner domain.Endpoint
	switch {
	case src.IsBoundary() && !dst.IsBoundary():
		bare, inner = src, dst
	case dst.IsBoundary() && !src.IsBoundary():
		bare, inner = dst, src
	}
	if bare.Plug != "" {
		if _, exported := b.g.Exported(bare.Plug); !exported {
			if o.weak {
				return &domain.InvalidLinkError{Source: src, Dest: dst, Reason: "an export cannot be weak"}
			}
			return b.g.Export(inner.Node, inner.Plug, bare.Plug)
		}
	}
	_, err := b.g.Connect(src, dst, o.weak)
	return err
}

// Link parses "source->dest" (or "source->dest weak") and adds the link.
func (b *Builder) Link(expr string) error {
	src, rest, ok := strings.Cut(expr, "->")
	if !ok {
		return fmt.Errorf("%w: link %q", domain.ErrUnsupportedDeclaration, expr)
	}
	fields := strings.Fields(rest)
	switch {
	case len(fields) == 1:
		return b.AddLink(strings.TrimSpace(src), fields[0])
	case len(fields) == 2 && fields[1] == "weak":
		return b.AddLink(strings.TrimSpace(src), fields[0], Weak())
	}
	return fmt.Errorf("%w: link %q", domain.ErrUnsupportedDeclaration, expr)
}

// ExportPlug aliases node.plug as an exported plug. An empty exported name
// reuses the plug name.
func (b *Builder) ExportPlug(node, plug, exported string) error {
	if err := b.check(); err != nil {
		return err
	}
	return b.g.Export(node, plug, exported)
}

// DeclareSelectionGroup declares a selection parameter over groups of nodes.
func (b *Builder) DeclareSelectionGroup(param string, groups []graph.Group) error {
	if err := b.check(); err != nil {
		return err
	}
	return b.g.DeclareSelectionGroup(param, groups)
}

// SelectGroup selects a group other than the default first one.
func (b *Builder) SelectGroup(param, group string) error {
	if err := b.check(); err != nil {
		return err
	}
	return b.g.SelectGroup(param, group)
}

// SetNodePosition records layout metadata for a node or boundary box.
func (b *Builder) SetNodePosition(name string, x, y float64) error {
	if err := b.check(); err != nil {
		return err
	}
	return b.g.SetNodePosition(name, x, y)
}

// SetZoom records the layout zoom level.
func (b *Builder) SetZoom(level float64) error {
	if err := b.check(); err != nil {
		return err
	}
	b.g.SetZoom(level)
	return nil
}

// SetDocumentation sets the pipeline documentation string.
func (b *Builder) SetDocumentation(doc string) error {
	if err := b.check(); err != nil {
		return err
	}
	b.g.SetDocumentation(doc)
	return nil
}

// Graph exposes the graph under construction, for read access.
func (b *Builder) Graph() *graph.Graph { return b.g }

// Finish returns the graph. The builder cannot be used afterwards.
func (b *Builder) Finish() (*graph.Graph, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	b.finished = true
	b.logger.Debug("pipeline built", "pipeline", b.g.Name(), "nodes", len(b.g.Nodes()))
	return b.g, nil
}
