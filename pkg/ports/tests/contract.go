package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/pipegraph/pkg/domain"
	"github.com/aretw0/pipegraph/pkg/ports"
)

// CatalogContractTest verifies that an adapter complies with ports.Catalog.
// The catalog must contain exactly the given modules.
func CatalogContractTest(t *testing.T, catalog ports.Catalog, expected map[string]domain.ProcessSpec) {
	t.Helper()
	ctx := context.Background()

	t.Run("Lookup_Success", func(t *testing.T) {
		for module, want := range expected {
			got, err := catalog.Lookup(ctx, module)
			if err != nil {
				t.Fatalf("unexpected error looking up %s: %v", module, err)
			}
			if got.Module != module {
				t.Errorf("module mismatch: got %q, want %q", got.Module, module)
			}
			if len(got.Params) != len(want.Params) {
				t.Errorf("%s: got %d params, want %d", module, len(got.Params), len(want.Params))
			}
		}
	})

	t.Run("Lookup_NotFound", func(t *testing.T) {
		_, err := catalog.Lookup(ctx, "no.such.module")
		if !errors.Is(err, domain.ErrModuleNotFound) {
			t.Errorf("expected ErrModuleNotFound, got %v", err)
		}
	})

	t.Run("Modules", func(t *testing.T) {
		modules, err := catalog.Modules(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing modules: %v", err)
		}
		if len(modules) != len(expected) {
			t.Errorf("expected %d modules, got %d (%v)", len(expected), len(modules), modules)
		}
		for i := 1; i < len(modules); i++ {
			if modules[i-1] > modules[i] {
				t.Errorf("modules not sorted: %v", modules)
				break
			}
		}
	})
}

// DocumentStoreContractTest verifies that an adapter complies with
// ports.DocumentStore. The store must start empty.
func DocumentStoreContractTest(t *testing.T, store ports.DocumentStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("Load_NotFound", func(t *testing.T) {
		_, err := store.Load(ctx, "missing")
		if !errors.Is(err, domain.ErrDocumentNotFound) {
			t.Errorf("expected ErrDocumentNotFound, got %v", err)
		}
	})

	t.Run("Save_Load_List_Delete", func(t *testing.T) {
		doc := []byte(`<pipeline capsul_xml="2.0"/>`)
		if err := store.Save(ctx, "alpha", doc); err != nil {
			t.Fatalf("save: %v", err)
		}
		got, err := store.Load(ctx, "alpha")
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if string(got) != string(doc) {
			t.Errorf("content mismatch: got %q, want %q", got, doc)
		}

		names, err := store.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(names) != 1 || names[0] != "alpha" {
			t.Errorf("unexpected names: %v", names)
		}

		if err := store.Delete(ctx, "alpha"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := store.Load(ctx, "alpha"); !errors.Is(err, domain.ErrDocumentNotFound) {
			t.Errorf("expected ErrDocumentNotFound after delete, got %v", err)
		}
		if err := store.Delete(ctx, "alpha"); err != nil {
			t.Errorf("deleting a missing document must not fail: %v", err)
		}
	})
}
