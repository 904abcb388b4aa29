package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory when no config
// path is given.
const DefaultConfigFile = "pipegraph.yaml"

// Config is the CLI configuration. It is read from YAML, then environment
// variables named PIPEGRAPH_<SECTION>_<KEY> override single values.
type Config struct {
	Store   StoreConfig    `mapstructure:"store"`
	Catalog CatalogConfig  `mapstructure:"catalog"`
	Server  ServerConfig   `mapstructure:"server"`
	Log     LogConfig      `mapstructure:"log"`
	Modules []ModuleConfig `mapstructure:"modules"`
}

// StoreConfig selects where served pipelines are kept.
type StoreConfig struct {
	// Backend is "file", "memory" or "redis".
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
	// Format of stored documents: "yaml" or "xml".
	Format  string        `mapstructure:"format"`
	LockTTL time.Duration `mapstructure:"lock_ttl"`
	Redis   RedisConfig   `mapstructure:"redis"`

	// EncryptionKey is a base64 AES-256 key. When set, documents are
	// encrypted at rest. FallbackKeys still decrypt after a rotation.
	EncryptionKey string   `mapstructure:"encryption_key"`
	FallbackKeys  []string `mapstructure:"fallback_keys"`
	// Redact lists patterns of parameter names whose values are never stored.
	Redact []string `mapstructure:"redact"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// CatalogConfig points at a directory of module declarations.
type CatalogConfig struct {
	Dir string `mapstructure:"dir"`
}

type ServerConfig struct {
	Port    int  `mapstructure:"port"`
	Metrics bool `mapstructure:"metrics"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	// Format is "text" (default) or "json".
	Format string `mapstructure:"format"`
}

// ModuleConfig declares a module inline, without a catalog directory.
type ModuleConfig struct {
	Module string           `mapstructure:"module"`
	Doc    string           `mapstructure:"doc"`
	Params []map[string]any `mapstructure:"params"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Backend: "file",
			Format:  "yaml",
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
		Server: ServerConfig{Port: 8080, Metrics: true},
		Log:    LogConfig{Level: "info"},
	}
}

var envKeys = []string{
	"store.backend", "store.dir", "store.format", "store.lock_ttl",
	"store.redis.addr", "store.redis.password", "store.redis.db", "store.redis.prefix", "store.redis.ttl",
	"store.encryption_key", "store.fallback_keys", "store.redact",
	"catalog.dir",
	"server.port", "server.metrics",
	"log.level", "log.format",
}

// LoadConfig reads path. An empty path falls back to DefaultConfigFile when
// it exists. Environment overrides apply in both cases.
func LoadConfig(path string) (Config, error) {
	raw := map[string]any{}

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	for _, key := range envKeys {
		name := "PIPEGRAPH_" + strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
		if v, ok := os.LookupEnv(name); ok {
			setPath(raw, strings.Split(key, "."), v)
		}
	}

	cfg := DefaultConfig()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &cfg,
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Store.Backend {
	case "file", "memory", "redis":
	default:
		return fmt.Errorf("invalid config: unknown store backend %q", c.Store.Backend)
	}
	switch c.Store.Format {
	case "yaml", "yml", "xml":
	default:
		return fmt.Errorf("invalid config: unknown store format %q", c.Store.Format)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid config: unknown log format %q", c.Log.Format)
	}
	for i, m := range c.Modules {
		if m.Module == "" {
			return fmt.Errorf("invalid config: modules[%d] has no name", i)
		}
	}
	return nil
}

// setPath stores v under a dotted key, creating nested maps. yaml.v3 decodes
// mappings as map[string]any, so existing sections are reused.
func setPath(m map[string]any, path []string, v any) {
	for _, k := range path[:len(path)-1] {
		next, ok := m[k].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[k] = next
		}
		m = next
	}
	m[path[len(path)-1]] = v
}
