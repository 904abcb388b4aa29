package cli

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/pipegraph/internal/logging"
	"github.com/aretw0/pipegraph/pkg/domain"
	"github.com/aretw0/pipegraph/pkg/graph"
)

const demo = `version: "2.0"
name: demo
entries:
  - process: {name: bet, module: fsl.BET}
  - switch: {name: method, alternatives: [brain, raw], outputs: [image]}
  - link: {source: t1, dest: bet.in_file}
  - link: {source: bet.out_file, dest: method.brain_switch_image}
  - link: {source: t1, dest: method.raw_switch_image}
  - link: {source: method.image, dest: result}
`

var testConfig = Config{
	Store: StoreConfig{Backend: "memory", Format: "yaml"},
	Modules: []ModuleConfig{{
		Module: "fsl.BET",
		Params: []map[string]any{
			{"name": "in_file", "type": "file"},
			{"name": "frac", "type": "float", "optional": true},
			{"name": "out_file", "type": "file", "output": true},
		},
	}},
}

func load(t *testing.T, edits Edits) (*graph.Graph, error) {
	t.Helper()
	path := writeFile(t, t.TempDir(), "demo.yaml", demo)
	catalog, _, err := OpenCatalog(testConfig)
	require.NoError(t, err)
	return LoadPipeline(context.Background(), path, catalog, edits, logging.NewNop(), domain.ActivationHooks{})
}

func TestLoadPipeline(t *testing.T) {
	g, err := load(t, Edits{})
	require.NoError(t, err)
	assert.Equal(t, "demo", g.Name())
	assert.Len(t, g.Nodes(), 2)

	again, err := load(t, Edits{})
	require.NoError(t, err)
	assert.Equal(t, g.ID(), again.ID(), "same document, same id")
}

func TestEdits_Apply(t *testing.T) {
	t.Run("Values, switches and disabled nodes", func(t *testing.T) {
		g, err := load(t, Edits{
			Values:     []string{"bet.frac=0.4"},
			Selections: []string{"method=raw"},
			Disable:    []string{"bet"},
		})
		require.NoError(t, err)

		nodes, err := g.ListNodes()
		require.NoError(t, err)
		assert.False(t, nodes[0].Enabled)
		assert.Equal(t, "raw", nodes[1].Selected)
		assert.True(t, nodes[1].Activated, "raw is fed by t1")
		for _, p := range nodes[0].Plugs {
			if p.Name == "frac" {
				assert.Equal(t, 0.4, p.Value)
			}
		}
	})

	t.Run("Errors", func(t *testing.T) {
		_, err := load(t, Edits{Values: []string{"bet.frac"}})
		assert.ErrorContains(t, err, "key=value")

		_, err = load(t, Edits{Selections: []string{"method=spm"}})
		assert.ErrorIs(t, err, domain.ErrUnknownAlternative)

		_, err = load(t, Edits{Disable: []string{"nope"}})
		assert.ErrorIs(t, err, domain.ErrDanglingReference)
	})
}

func TestCatalogs(t *testing.T) {
	catalog, dir, err := OpenCatalog(testConfig)
	require.NoError(t, err)
	assert.Nil(t, dir)

	ctx := context.Background()
	spec, err := catalog.Lookup(ctx, "fsl.BET")
	require.NoError(t, err)
	assert.Equal(t, domain.KindProcess, spec.Kind)
	assert.Len(t, spec.Params, 3)

	_, err = catalog.Lookup(ctx, "spm.Smooth")
	assert.ErrorIs(t, err, domain.ErrModuleNotFound)

	none, _, err := OpenCatalog(Config{})
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestNewManager(t *testing.T) {
	m, closeFn, err := NewManager(testConfig, logging.NewNop(), domain.ActivationHooks{})
	require.NoError(t, err)
	defer closeFn()

	ctx := context.Background()
	_, err = m.Create(ctx, "demo", []byte(demo))
	require.NoError(t, err)
	names, err := m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"demo"}, names)
}

func TestOpenStore_Middlewares(t *testing.T) {
	cfg := testConfig
	cfg.Store.Backend = "memory"
	cfg.Store.Redact = []string{"token"}
	cfg.Store.EncryptionKey = base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))

	store, locker, closeFn, err := OpenStore(cfg)
	require.NoError(t, err)
	defer closeFn()
	assert.Nil(t, locker)

	ctx := context.Background()
	doc := "version: \"2.0\"\nname: up\nentries:\n  - process: {name: push, module: fsl.BET, set: [{name: api_token, value: s3cr3t}]}\n"
	require.NoError(t, store.Save(ctx, "up", []byte(doc)))
	back, err := store.Load(ctx, "up")
	require.NoError(t, err)
	assert.NotContains(t, string(back), "s3cr3t")
	assert.Contains(t, string(back), "push")

	cfg.Store.EncryptionKey = "not base64!"
	_, _, _, err = OpenStore(cfg)
	assert.Error(t, err)

	cfg.Store.EncryptionKey = base64.StdEncoding.EncodeToString([]byte("short"))
	_, _, _, err = OpenStore(cfg)
	assert.Error(t, err)
}
