// Package loam implements a module catalog over a Loam repository: one
// document per module, parameters declared in the frontmatter.
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/pipegraph/pkg/domain"
)

// Catalog adapts a Loam repository to ports.Catalog.
type Catalog struct {
	Repo *loam.TypedRepository[ModuleMetadata]
}

// New creates a catalog over repo.
func New(repo *loam.TypedRepository[ModuleMetadata]) *Catalog {
	return &Catalog{Repo: repo}
}

// Open initializes a read-only Loam repository at dir and wraps it.
func Open(dir string) (*Catalog, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(abs,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[ModuleMetadata](repo)), nil
}

// index maps module names to their specs, rejecting duplicates.
func (c *Catalog) index(ctx context.Context) (map[string]domain.ProcessSpec, error) {
	docs, err := c.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	specs := make(map[string]domain.ProcessSpec, len(docs))
	seen := make(map[string]string, len(docs))
	for _, doc := range docs {
		s := doc.Data.spec(trimExtension(doc.ID), doc.Content)
		if existing, ok := seen[s.Module]; ok {
			return nil, fmt.Errorf("collision detected: module '%s' is declared in both '%s' and '%s'", s.Module, existing, doc.ID)
		}
		seen[s.Module] = doc.ID
		specs[s.Module] = s
	}
	return specs, nil
}

// Lookup returns the declaration of module.
func (c *Catalog) Lookup(ctx context.Context, module string) (domain.ProcessSpec, error) {
	specs, err := c.index(ctx)
	if err != nil {
		return domain.ProcessSpec{}, err
	}
	s, ok := specs[module]
	if !ok {
		return domain.ProcessSpec{}, fmt.Errorf("%w: %s", domain.ErrModuleNotFound, module)
	}
	return s, nil
}

// Modules lists the declared module names, sorted.
func (c *Catalog) Modules(ctx context.Context) ([]string, error) {
	specs, err := c.index(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// DecodeParams converts loosely typed parameter maps, as found in JSON
// payloads, into parameter declarations.
func DecodeParams(raw []map[string]any) ([]domain.ParamSpec, error) {
	var params []ParamMetadata
	if err := mapstructure.Decode(raw, &params); err != nil {
		return nil, fmt.Errorf("failed to decode params: %w", err)
	}
	return ModuleMetadata{Params: params}.spec("", "").Params, nil
}

// Watch reports the ids of changed module documents until ctx is done.
func (c *Catalog) Watch(ctx context.Context) (<-chan string, error) {
	events, err := c.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- evt.ID:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

func trimExtension(id string) string {
	if ext := filepath.Ext(id); ext != "" {
		switch ext {
		case ".md", ".json", ".yaml", ".yml":
			return filepath.ToSlash(strings.TrimSuffix(id, ext))
		}
	}
	return filepath.ToSlash(id)
}
