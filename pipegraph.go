package pipegraph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/pipegraph/internal/logging"
	loamAdapter "github.com/aretw0/pipegraph/pkg/adapters/loam"
	"github.com/aretw0/pipegraph/pkg/codec"
	"github.com/aretw0/pipegraph/pkg/domain"
	"github.com/aretw0/pipegraph/pkg/dsl"
	"github.com/aretw0/pipegraph/pkg/graph"
	"github.com/aretw0/pipegraph/pkg/ports"
)

type config struct {
	catalog    ports.Catalog
	catalogDir string
	hooks      domain.ActivationHooks
	logger     *slog.Logger
}

// Option configures Open, Parse and NewBuilder.
type Option func(*config)

// WithCatalog resolves process modules through c.
func WithCatalog(c ports.Catalog) Option {
	return func(cfg *config) {
		cfg.catalog = c
	}
}

// WithCatalogDir resolves process modules from a directory of module
// declarations (Markdown frontmatter, JSON or YAML), read through Loam.
func WithCatalogDir(dir string) Option {
	return func(cfg *config) {
		cfg.catalogDir = dir
	}
}

// WithHooks registers activation hooks on the built graph.
func WithHooks(hooks domain.ActivationHooks) Option {
	return func(cfg *config) {
		cfg.hooks = cfg.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

func newConfig(opts []Option) (*config, error) {
	cfg := &config{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.catalog == nil && cfg.catalogDir != "" {
		c, err := loamAdapter.Open(cfg.catalogDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open catalog: %w", err)
		}
		cfg.catalog = c
	}
	return cfg, nil
}

func (cfg *config) codecOptions() []codec.Option {
	opts := []codec.Option{
		codec.WithLogger(cfg.logger),
		codec.WithGraphOptions(graph.WithLogger(cfg.logger), graph.WithHooks(cfg.hooks)),
	}
	if cfg.catalog != nil {
		opts = append(opts, codec.WithCatalog(cfg.catalog))
	}
	return opts
}

// Open builds the pipeline described by the XML or YAML document at path.
func Open(ctx context.Context, path string, opts ...Option) (*graph.Graph, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	return codec.LoadFile(ctx, path, cfg.codecOptions()...)
}

// Parse builds the pipeline described by data. The format is detected from
// the content.
func Parse(ctx context.Context, data []byte, opts ...Option) (*graph.Graph, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	return codec.LoadBytes(ctx, data, cfg.codecOptions()...)
}

// NewBuilder starts building a pipeline programmatically.
func NewBuilder(name string, opts ...Option) (*dsl.Builder, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	bopts := []dsl.Option{
		dsl.WithLogger(cfg.logger),
		dsl.WithGraphOptions(graph.WithLogger(cfg.logger), graph.WithHooks(cfg.hooks)),
	}
	if cfg.catalog != nil {
		bopts = append(bopts, dsl.WithCatalog(cfg.catalog))
	}
	return dsl.New(name, bopts...), nil
}
