// Package middleware wraps a ports.DocumentStore with extra behavior on the
// way to storage: encryption at rest and redaction of sensitive values.
package middleware

import "github.com/aretw0/pipegraph/pkg/ports"

// Middleware allows wrapping a DocumentStore to add behavior.
type Middleware func(ports.DocumentStore) ports.DocumentStore

// Chain applies mws to store. The first middleware sees calls first.
func Chain(store ports.DocumentStore, mws ...Middleware) ports.DocumentStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
