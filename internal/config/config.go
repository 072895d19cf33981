package config

import (
	"fmt"
	"time"
)

// Default configuration values.
const (
	defaultServiceName = "shorturls"
	defaultServicePort = 8094
	defaultVersion     = "0.1.0"

	defaultDumpDir     = "/public/dumps/public/other/shorturls"
	defaultSnapshotDir = "./data"

	defaultRedisAddress = "localhost:6379"
	defaultCacheTTL     = 30 * 24 * time.Hour

	defaultLoggingLevel = "info"
)

// Config holds the application configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Paths   PathsConfig   `yaml:"paths"`
	Redis   RedisConfig   `yaml:"redis"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Port    int    `env:"SHORTURLS_PORT" yaml:"port"`
	Debug   bool   `env:"APP_DEBUG"      yaml:"debug"`
}

// PathsConfig locates the raw dump directory and the snapshot directory.
// The extract job reads dumps and writes snapshots; the server only ever
// reads snapshots.
type PathsConfig struct {
	DumpDir     string `env:"SHORTURLS_DUMP_DIR"     yaml:"dump_dir"`
	SnapshotDir string `env:"SHORTURLS_SNAPSHOT_DIR" yaml:"snapshot_dir"`
}

// RedisConfig holds cache backend configuration. The cache is best-effort:
// the server runs uncached when Redis is unreachable at startup.
type RedisConfig struct {
	Address  string `env:"REDIS_ADDRESS"  yaml:"address"`
	Password string `env:"REDIS_PASSWORD" yaml:"password"`
	DB       int    `env:"REDIS_DB"       yaml:"db"`
	// CacheTTL is configured via environment ("720h" style); YAML cannot
	// express durations as strings.
	CacheTTL time.Duration `env:"SHORTURLS_CACHE_TTL" yaml:"-"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `env:"LOG_LEVEL" yaml:"level"`
}

// Load loads configuration from the specified path.
func Load(path string) (*Config, error) {
	return load(path, setDefaults)
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	if cfg.Service.Name == "" {
		cfg.Service.Name = defaultServiceName
	}
	if cfg.Service.Version == "" {
		cfg.Service.Version = defaultVersion
	}
	if cfg.Service.Port == 0 {
		cfg.Service.Port = defaultServicePort
	}
	if cfg.Paths.DumpDir == "" {
		cfg.Paths.DumpDir = defaultDumpDir
	}
	if cfg.Paths.SnapshotDir == "" {
		cfg.Paths.SnapshotDir = defaultSnapshotDir
	}
	if cfg.Redis.Address == "" {
		cfg.Redis.Address = defaultRedisAddress
	}
	if cfg.Redis.CacheTTL == 0 {
		cfg.Redis.CacheTTL = defaultCacheTTL
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaultLoggingLevel
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("service.port: %d is out of range", c.Service.Port)
	}
	if c.Paths.SnapshotDir == "" {
		return fmt.Errorf("paths.snapshot_dir: is required")
	}
	if c.Redis.CacheTTL < 0 {
		return fmt.Errorf("redis.cache_ttl: must not be negative")
	}
	return nil
}
