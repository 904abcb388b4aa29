package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/pipegraph/pkg/domain"
)

// Catalog implements ports.Catalog using an in-memory map.
// Safe for concurrent use.
type Catalog struct {
	specs map[string]domain.ProcessSpec
	mu    sync.RWMutex
}

// NewCatalog creates a catalog holding the given declarations.
func NewCatalog(specs ...domain.ProcessSpec) (*Catalog, error) {
	c := &Catalog{specs: make(map[string]domain.ProcessSpec, len(specs))}
	for _, s := range specs {
		if err := c.Register(s); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Register adds or replaces a declaration.
func (c *Catalog) Register(spec domain.ProcessSpec) error {
	if spec.Module == "" {
		return fmt.Errorf("process spec missing module")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.specs[spec.Module] = clone(spec)
	return nil
}

// Lookup returns the declaration of a module.
func (c *Catalog) Lookup(ctx context.Context, module string) (domain.ProcessSpec, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	spec, ok := c.specs[module]
	if !ok {
		return domain.ProcessSpec{}, fmt.Errorf("%w: %s", domain.ErrModuleNotFound, module)
	}
	return clone(spec), nil
}

// Modules lists the registered modules, sorted.
func (c *Catalog) Modules(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.specs))
	for m := range c.specs {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

func clone(s domain.ProcessSpec) domain.ProcessSpec {
	s.Params = append([]domain.ParamSpec(nil), s.Params...)
	return s
}
