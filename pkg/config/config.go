// Package config loads the cache proxy configuration from YAML with
// environment overrides.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/region-cache/pkg/cache"
	"github.com/Sternrassler/region-cache/pkg/region"
)

// Storage engines.
const (
	StorageRedis   = "redis"
	StorageLevelDB = "leveldb"
)

// Config is the root configuration document.
type Config struct {
	Storage                   string         `yaml:"storage"`
	HardenedMode              bool           `yaml:"hardenedMode"`
	Namespace                 string         `yaml:"namespace"`
	IgnoreNoRegionsConfigured bool           `yaml:"ignoreNoRegionsConfigured"`
	Redis                     RedisConfig    `yaml:"redis"`
	LevelDB                   LevelDBConfig  `yaml:"leveldb"`
	Regions                   []RegionConfig `yaml:"regions"`
	Server                    ServerConfig   `yaml:"server"`
	Log                       LogConfig      `yaml:"log"`
}

// RedisConfig configures the Redis engine and its connection pool.
type RedisConfig struct {
	// Addr is host:port or a redis:// URL.
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"poolSize"`
	MinIdleConns int           `yaml:"minIdleConns"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`

	// MaxEntriesDeletedInOneBatch is the default eviction batch size.
	MaxEntriesDeletedInOneBatch int `yaml:"maxEntriesDeletedInOneBatch"`
}

// LevelDBConfig configures the embedded engine.
type LevelDBConfig struct {
	Path string `yaml:"path"`
}

// RegionConfig declares one region. TTL is a Go duration string; empty or
// "0" means entries never expire.
type RegionConfig struct {
	ID      string `yaml:"id"`
	TTL     string `yaml:"ttl"`
	Pattern string `yaml:"pattern"`
}

// ServerConfig configures the HTTP listener and the proxied origin.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	Origin          string        `yaml:"origin"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Storage:   StorageRedis,
		Namespace: "cache",
		Redis: RedisConfig{
			Addr:                        "localhost:6379",
			PoolSize:                    10,
			DialTimeout:                 5 * time.Second,
			ReadTimeout:                 3 * time.Second,
			WriteTimeout:                3 * time.Second,
			MaxEntriesDeletedInOneBatch: cache.DefaultMaxBatch,
		},
		LevelDB: LevelDBConfig{Path: "./data/leveldb"},
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path on top of Default, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	cfg.Server.Origin = strings.TrimRight(cfg.Server.Origin, "/")
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides fields from environment variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("REDIS_URL"); ok && v != "" {
		c.Redis.Addr = v
	}
	if v, ok := lookup("ORIGIN_URL"); ok && v != "" {
		c.Server.Origin = v
	}
	if v, ok := lookup("CACHE_NAMESPACE"); ok {
		c.Namespace = v
	}
	if v, ok := lookup("CACHE_STORAGE"); ok && v != "" {
		c.Storage = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("CACHE_HARDENED_MODE"); ok && v != "" {
		hardened, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CACHE_HARDENED_MODE: %w", err)
		}
		c.HardenedMode = hardened
	}
	return nil
}

// Validate checks values that do not depend on region semantics.
func (c Config) Validate() error {
	switch c.Storage {
	case StorageRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required")
		}
	case StorageLevelDB:
		if c.LevelDB.Path == "" {
			return fmt.Errorf("leveldb.path is required")
		}
	default:
		return fmt.Errorf("storage: unknown engine %q", c.Storage)
	}
	if c.Redis.MaxEntriesDeletedInOneBatch < 1 {
		return fmt.Errorf("redis.maxEntriesDeletedInOneBatch should be at least 1 but was %d", c.Redis.MaxEntriesDeletedInOneBatch)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	_, err := c.Definitions()
	return err
}

// Definitions converts the region list into region definitions.
func (c Config) Definitions() ([]region.Definition, error) {
	defs := make([]region.Definition, 0, len(c.Regions))
	for i, rc := range c.Regions {
		var ttl time.Duration
		if rc.TTL != "" && rc.TTL != "0" {
			d, err := time.ParseDuration(rc.TTL)
			if err != nil {
				return nil, fmt.Errorf("regions[%d].ttl: %w", i, err)
			}
			ttl = d
		}
		defs = append(defs, region.Definition{ID: rc.ID, TTL: ttl, Pattern: rc.Pattern})
	}
	return defs, nil
}

// Resolver builds the region resolver described by the configuration.
func (c Config) Resolver() (*region.Resolver, error) {
	defs, err := c.Definitions()
	if err != nil {
		return nil, err
	}
	return region.Build(c.Namespace, defs, c.IgnoreNoRegionsConfigured)
}

// Snapshot returns a diagnostic view of the configuration. Secrets are
// redacted.
func (c Config) Snapshot() map[string]any {
	regions := make([]map[string]any, 0, len(c.Regions))
	for _, rc := range c.Regions {
		regions = append(regions, map[string]any{
			"id":      rc.ID,
			"ttl":     rc.TTL,
			"pattern": rc.Pattern,
		})
	}

	redisPassword := ""
	if c.Redis.Password != "" {
		redisPassword = "***"
	}

	return map[string]any{
		"storage":                     c.Storage,
		"hardenedMode":                c.HardenedMode,
		"namespace":                   c.Namespace,
		"ignoreNoRegionsConfigured":   c.IgnoreNoRegionsConfigured,
		"maxEntriesDeletedInOneBatch": c.Redis.MaxEntriesDeletedInOneBatch,
		"redis": map[string]any{
			"addr":     redactAddr(c.Redis.Addr),
			"password": redisPassword,
			"db":       c.Redis.DB,
			"poolSize": c.Redis.PoolSize,
		},
		"leveldb": map[string]any{"path": c.LevelDB.Path},
		"server": map[string]any{
			"port":   c.Server.Port,
			"origin": c.Server.Origin,
		},
		"regions": regions,
	}
}

// redactAddr hides the password of a redis:// URL.
func redactAddr(addr string) string {
	if !strings.Contains(addr, "://") {
		return addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}
