package ports

import (
	"context"

	"github.com/aretw0/pipegraph/pkg/domain"
)

// Catalog resolves module references used by process declarations.
type Catalog interface {
	// Lookup returns the declaration of a module.
	// Returns domain.ErrModuleNotFound if the module is unknown.
	Lookup(ctx context.Context, module string) (domain.ProcessSpec, error)

	// Modules lists the known module references, sorted.
	Modules(ctx context.Context) ([]string, error)
}
