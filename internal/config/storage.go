package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	pkgconfig "github.com/lewisedginton/travel_context_engine/pkg/config"
)

// StorageConfig holds configuration for the file-backed context store
type StorageConfig struct {
	// Backend selects the file provider: "local" or "s3"
	Backend string `env:"STORAGE_BACKEND" yaml:"backend" default:"local"`

	// BaseDir is the root directory for the local backend
	BaseDir string `env:"STORAGE_BASE_DIR" yaml:"base_dir" default:"./data"`

	// S3 settings, required when Backend is "s3"
	S3Bucket string `env:"STORAGE_S3_BUCKET" yaml:"s3_bucket"`
	S3Prefix string `env:"STORAGE_S3_PREFIX" yaml:"s3_prefix" default:"context-engine"`
	S3Region string `env:"STORAGE_S3_REGION" yaml:"s3_region"`
}

// Validate checks the storage backend selection
func (s StorageConfig) Validate() error {
	var result error

	if err := pkgconfig.OneOf("storage backend", s.Backend, "local", "s3"); err != nil {
		result = multierror.Append(result, err)
	}

	if s.Backend == "s3" && s.S3Bucket == "" {
		result = multierror.Append(result, fmt.Errorf("s3_bucket is required when storage backend is 's3'"))
	}

	if s.Backend == "local" && s.BaseDir == "" {
		result = multierror.Append(result, fmt.Errorf("base_dir is required when storage backend is 'local'"))
	}

	return result
}

// DatabaseConfig holds Postgres configuration for the optional SQL context store
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL" yaml:"url"`
	MaxConnections  int           `env:"DATABASE_MAX_CONNECTIONS" yaml:"max_connections" default:"25"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" yaml:"conn_max_lifetime" default:"5m"`
	ConnMaxIdleTime time.Duration `env:"DATABASE_CONN_MAX_IDLE_TIME" yaml:"conn_max_idle_time" default:"5m"`
}

// Validate checks the database configuration when a URL is present
func (d DatabaseConfig) Validate() error {
	var result error
	if d.URL != "" && d.MaxConnections <= 0 {
		result = multierror.Append(result, fmt.Errorf("database max_connections must be greater than 0 when database is configured"))
	}
	return result
}

// RedisConfig holds Redis configuration for the optional conversation cache
type RedisConfig struct {
	URL     string        `env:"REDIS_URL" yaml:"url"`
	TTL     time.Duration `env:"REDIS_TTL" yaml:"ttl" default:"24h"`
	Timeout time.Duration `env:"REDIS_TIMEOUT" yaml:"timeout" default:"5s"`
}
