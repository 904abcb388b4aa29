package cli

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/pipegraph/internal/adapters/file"
	"github.com/aretw0/pipegraph/pkg/adapters/loam"
	"github.com/aretw0/pipegraph/pkg/adapters/memory"
	"github.com/aretw0/pipegraph/pkg/adapters/redis"
	"github.com/aretw0/pipegraph/pkg/codec"
	"github.com/aretw0/pipegraph/pkg/domain"
	"github.com/aretw0/pipegraph/pkg/persistence/middleware"
	"github.com/aretw0/pipegraph/pkg/ports"
	"github.com/aretw0/pipegraph/pkg/session"
)

// Catalogs searches several catalogs in order. The first one that knows a
// module wins.
type Catalogs []ports.Catalog

func (cs Catalogs) Lookup(ctx context.Context, module string) (domain.ProcessSpec, error) {
	for _, c := range cs {
		spec, err := c.Lookup(ctx, module)
		if err == nil {
			return spec, nil
		}
		if !errors.Is(err, domain.ErrModuleNotFound) {
			return domain.ProcessSpec{}, err
		}
	}
	return domain.ProcessSpec{}, fmt.Errorf("%w: %s", domain.ErrModuleNotFound, module)
}

func (cs Catalogs) Modules(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, c := range cs {
		mods, err := c.Modules(ctx)
		if err != nil {
			return nil, err
		}
		for _, m := range mods {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// OpenCatalog builds the module catalog: inline modules first, then the
// catalog directory. It returns nil when neither is configured.
func OpenCatalog(cfg Config) (ports.Catalog, *loam.Catalog, error) {
	var cs Catalogs
	if len(cfg.Modules) > 0 {
		inline, err := memory.NewCatalog()
		if err != nil {
			return nil, nil, err
		}
		for _, m := range cfg.Modules {
			params, err := loam.DecodeParams(m.Params)
			if err != nil {
				return nil, nil, fmt.Errorf("module %s: %w", m.Module, err)
			}
			spec := domain.ProcessSpec{Module: m.Module, Kind: domain.KindProcess, Doc: m.Doc, Params: params}
			if err := inline.Register(spec); err != nil {
				return nil, nil, err
			}
		}
		cs = append(cs, inline)
	}

	var dir *loam.Catalog
	if cfg.Catalog.Dir != "" {
		var err error
		if dir, err = loam.Open(cfg.Catalog.Dir); err != nil {
			return nil, nil, err
		}
		cs = append(cs, dir)
	}

	switch len(cs) {
	case 0:
		return nil, nil, nil
	case 1:
		return cs[0], dir, nil
	}
	return cs, dir, nil
}

// OpenStore creates the document store and, for redis, the distributed
// locker sharing its client. The returned close function releases them.
func OpenStore(cfg Config) (ports.DocumentStore, ports.DistributedLocker, func() error, error) {
	noop := func() error { return nil }
	var (
		store   ports.DocumentStore
		locker  ports.DistributedLocker
		closeFn = noop
	)
	switch cfg.Store.Backend {
	case "memory":
		store = memory.NewStore()
	case "redis":
		var opts []redis.Option
		if cfg.Store.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Store.Redis.Prefix))
		}
		if cfg.Store.Redis.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.Store.Redis.TTL))
		}
		r := cfg.Store.Redis
		rs := redis.New(r.Addr, r.Password, r.DB, opts...)
		prefix := r.Prefix
		if prefix == "" {
			prefix = redis.DefaultPrefix
		}
		store, locker, closeFn = rs, redis.NewLocker(rs.Client(), prefix), rs.Close
	default:
		ext := cfg.Store.Format
		if ext == "yml" {
			ext = "yaml"
		}
		dir := cfg.Store.Dir
		if dir == "" {
			dir = filepath.Join(".pipegraph", "pipelines")
		}
		store = file.New(dir, ext)
	}

	mws, err := storeMiddlewares(cfg.Store)
	if err != nil {
		_ = closeFn()
		return nil, nil, nil, err
	}
	return middleware.Chain(store, mws...), locker, closeFn, nil
}

// storeMiddlewares returns redaction before encryption: redaction has to
// read the plain document.
func storeMiddlewares(cfg StoreConfig) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(cfg.Redact) > 0 {
		mw, err := middleware.NewRedactionMiddleware(cfg.Redact)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	if cfg.EncryptionKey != "" {
		active, err := decodeKey(cfg.EncryptionKey)
		if err != nil {
			return nil, err
		}
		enc := middleware.EncryptionConfig{ActiveKey: active}
		for _, k := range cfg.FallbackKeys {
			fb, err := decodeKey(k)
			if err != nil {
				return nil, err
			}
			enc.FallbackKeys = append(enc.FallbackKeys, fb)
		}
		mw, err := middleware.NewEncryptionMiddleware(enc)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return mws, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	return key, nil
}

// NewManager wires a session manager from cfg.
func NewManager(cfg Config, logger *slog.Logger, hooks domain.ActivationHooks) (*session.Manager, func() error, error) {
	store, locker, closeFn, err := OpenStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	catalog, _, err := OpenCatalog(cfg)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	c, err := codec.ForFormat(cfg.Store.Format)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithCodec(c),
		session.WithHooks(hooks),
	}
	if catalog != nil {
		opts = append(opts, session.WithCatalog(catalog))
	}
	if locker != nil {
		opts = append(opts, session.WithLocker(locker))
	}
	if cfg.Store.LockTTL > 0 {
		opts = append(opts, session.WithLockTTL(cfg.Store.LockTTL))
	}

	logger.Debug("Session manager ready", "backend", cfg.Store.Backend, "format", c.Format(), "catalog", catalog != nil)
	return session.NewManager(store, opts...), closeFn, nil
}
