package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/pipegraph/internal/logging"
	"github.com/aretw0/pipegraph/pkg/codec"
	"github.com/aretw0/pipegraph/pkg/domain"
	"github.com/aretw0/pipegraph/pkg/graph"
	"github.com/aretw0/pipegraph/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock outlives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// cached is a built graph with the document it was built from.
type cached struct {
	doc []byte
	g   *graph.Graph
}

// Manager serializes access to stored pipelines.
// Lock entries are reference counted and dropped when unused.
type Manager struct {
	store   ports.DocumentStore
	catalog ports.Catalog
	codec   codec.Codec

	mu    sync.Mutex
	locks map[string]*lockEntry
	cache map[string]cached

	locker  ports.DistributedLocker
	lockTTL time.Duration
	hooks   domain.ActivationHooks
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithCatalog sets the catalog used to build stored documents.
func WithCatalog(c ports.Catalog) Option {
	return func(m *Manager) {
		m.catalog = c
	}
}

// WithCodec sets the format documents are stored in. YAML by default.
func WithCodec(c codec.Codec) Option {
	return func(m *Manager) {
		m.codec = c
	}
}

// WithHooks attaches activation hooks to every graph the manager builds.
func WithHooks(hooks domain.ActivationHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager over store.
func NewManager(store ports.DocumentStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		codec:   codec.YAML{},
		locks:   make(map[string]*lockEntry),
		cache:   make(map[string]cached),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu, then call release(name) after unlocking.
func (m *Manager) acquire(name string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[name]
	if !exists {
		entry = &lockEntry{}
		m.locks[name] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[name]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, name)
	}
}

// WithLock runs fn while holding the lock for the named pipeline.
func (m *Manager) WithLock(ctx context.Context, name string, fn func(context.Context) error) error {
	entry := m.acquire(name)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(name)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, name, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"pipeline", name,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// open returns the graph of the stored document. A cached graph is reused
// while the stored document is unchanged. Must be called under the lock.
func (m *Manager) open(ctx context.Context, name string) (*graph.Graph, error) {
	doc, err := m.store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	c, ok := m.cache[name]
	m.mu.Unlock()
	if ok && bytes.Equal(c.doc, doc) {
		return c.g, nil
	}

	g, err := m.build(ctx, name, doc)
	if err != nil {
		return nil, err
	}
	m.remember(name, doc, g)
	return g, nil
}

func (m *Manager) build(ctx context.Context, name string, doc []byte) (*graph.Graph, error) {
	opts := []codec.Option{
		codec.WithLogger(m.logger),
		codec.WithGraphOptions(graph.WithLogger(m.logger), graph.WithHooks(m.hooks)),
	}
	if m.catalog != nil {
		opts = append(opts, codec.WithCatalog(m.catalog))
	}
	g, err := codec.LoadBytes(ctx, doc, opts...)
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", name, err)
	}
	return g, nil
}

func (m *Manager) remember(name string, doc []byte, g *graph.Graph) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[name] = cached{doc: doc, g: g}
}

func (m *Manager) forget(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, name)
}

// persist encodes g and saves it. Must be called under the lock.
func (m *Manager) persist(ctx context.Context, name string, g *graph.Graph) error {
	doc, err := codec.Marshal(g, m.codec)
	if err != nil {
		return err
	}
	if err := m.store.Save(ctx, name, doc); err != nil {
		m.forget(name)
		return err
	}
	m.remember(name, doc, g)
	return nil
}

// Create validates a document in any supported format and stores it under
// name, replacing a previous pipeline with that name.
func (m *Manager) Create(ctx context.Context, name string, doc []byte) (*graph.Graph, error) {
	var g *graph.Graph
	err := m.WithLock(ctx, name, func(ctx context.Context) error {
		var err error
		if g, err = m.build(ctx, name, doc); err != nil {
			return err
		}
		return m.persist(ctx, name, g)
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("pipeline stored", "pipeline", name, "nodes", len(g.Nodes()))
	return g, nil
}

// Put stores an already built graph under name.
func (m *Manager) Put(ctx context.Context, name string, g *graph.Graph) error {
	return m.WithLock(ctx, name, func(ctx context.Context) error {
		return m.persist(ctx, name, g)
	})
}

// View runs fn on the named pipeline without saving it. fn must not mutate
// the graph.
func (m *Manager) View(ctx context.Context, name string, fn func(*graph.Graph) error) error {
	return m.WithLock(ctx, name, func(ctx context.Context) error {
		g, err := m.open(ctx, name)
		if err != nil {
			return err
		}
		return fn(g)
	})
}

// Edit runs fn on the named pipeline and saves the result. When fn fails the
// edit is discarded and the stored document is left untouched.
func (m *Manager) Edit(ctx context.Context, name string, fn func(*graph.Graph) error) error {
	return m.WithLock(ctx, name, func(ctx context.Context) error {
		g, err := m.open(ctx, name)
		if err != nil {
			return err
		}
		if err := fn(g); err != nil {
			// the cached graph may be half edited
			m.forget(name)
			return err
		}
		var div *domain.ActivationDivergenceError
		if err := g.Recompute(); err != nil && !errors.As(err, &div) {
			m.forget(name)
			return err
		}
		return m.persist(ctx, name, g)
	})
}

// Export returns the named pipeline encoded with c.
func (m *Manager) Export(ctx context.Context, name string, c codec.Codec) ([]byte, error) {
	var out []byte
	err := m.View(ctx, name, func(g *graph.Graph) error {
		var err error
		out, err = codec.Marshal(g, c)
		return err
	})
	return out, err
}

// Record rebuilds the named pipeline from its stored document and records
// the transitions of a full recompute. The cached graph is not touched.
func (m *Manager) Record(ctx context.Context, name string) (*graph.Record, error) {
	var rec *graph.Record
	err := m.WithLock(ctx, name, func(ctx context.Context) error {
		doc, err := m.store.Load(ctx, name)
		if err != nil {
			return err
		}
		g, err := m.build(ctx, name, doc)
		if err != nil {
			return err
		}
		r := graph.NewRecorder(g)
		err = g.Recompute()
		rec = r.Record()
		return err
	})
	return rec, err
}

// Delete removes the named pipeline.
func (m *Manager) Delete(ctx context.Context, name string) error {
	return m.WithLock(ctx, name, func(ctx context.Context) error {
		m.forget(name)
		return m.store.Delete(ctx, name)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying document store.
func (m *Manager) Store() ports.DocumentStore {
	return m.store
}
