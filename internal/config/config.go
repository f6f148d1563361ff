package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	pkgconfig "github.com/lewisedginton/travel_context_engine/pkg/config"
	"github.com/lewisedginton/travel_context_engine/pkg/logger"
)

// EngineConfig holds all configuration for the context engine
type EngineConfig struct {
	// Service configuration
	ServiceName string `env:"SERVICE_NAME" yaml:"service_name" default:"travel-context-engine"`
	Version     string `env:"VERSION" yaml:"version" default:"dev"`
	Environment string `env:"ENVIRONMENT" yaml:"environment" default:"development"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging,inline"`

	// Monitoring configuration
	Monitoring MonitoringConfig `yaml:"monitoring,inline"`

	// Storage configuration (file-backed context store)
	Storage StorageConfig `yaml:"storage,inline"`

	// Database configuration (optional Postgres context store)
	Database DatabaseConfig `yaml:"database,inline"`

	// Redis configuration (optional conversation cache)
	Redis RedisConfig `yaml:"redis,inline"`

	// Memory configuration (conversation memory behaviour)
	Memory MemoryConfig `yaml:"memory,inline"`

	// Learning configuration (preference learning behaviour)
	Learning LearningConfig `yaml:"learning,inline"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" yaml:"level" default:"info"`
	Format string `env:"LOG_FORMAT" yaml:"format" default:"json"`
}

// MonitoringConfig holds monitoring configuration
type MonitoringConfig struct {
	MetricsEnabled bool `env:"METRICS_ENABLED" yaml:"metrics_enabled" default:"true"`
	MetricsPort    int  `env:"METRICS_PORT" yaml:"metrics_port" default:"9090"`
}

// Validate validates the configuration and returns an error if invalid
func (c *EngineConfig) Validate() error {
	var result error

	if err := pkgconfig.OneOf("log_level", c.Logging.Level, "debug", "info", "warn", "error"); err != nil {
		result = multierror.Append(result, err)
	}

	if err := pkgconfig.OneOf("log_format", c.Logging.Format, "json", "text"); err != nil {
		result = multierror.Append(result, err)
	}

	// Validate metrics port range
	if c.Monitoring.MetricsEnabled && (c.Monitoring.MetricsPort < 1 || c.Monitoring.MetricsPort > 65535) {
		result = multierror.Append(result, fmt.Errorf("metrics_port must be between 1 and 65535, got %d", c.Monitoring.MetricsPort))
	}

	if err := c.Storage.Validate(); err != nil {
		result = multierror.Append(result, err)
	}

	if err := c.Database.Validate(); err != nil {
		result = multierror.Append(result, err)
	}

	if err := c.Memory.Validate(); err != nil {
		result = multierror.Append(result, err)
	}

	if err := c.Learning.Validate(); err != nil {
		result = multierror.Append(result, err)
	}

	return result
}

// GetLogLevel returns the parsed logger level
func (c *EngineConfig) GetLogLevel() logger.Level {
	return logger.ParseLevel(c.Logging.Level)
}

// IsProduction returns true if running in production environment
func (c *EngineConfig) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

// LogConfig logs the current configuration (without sensitive data)
func (c *EngineConfig) LogConfig(log logger.Logger) {
	log.Info("Engine configuration loaded",
		logger.StringField("service_name", c.ServiceName),
		logger.StringField("version", c.Version),
		logger.StringField("environment", c.Environment),
		logger.StringField("log_level", c.Logging.Level),
		logger.StringField("log_format", c.Logging.Format),
		logger.BoolField("metrics_enabled", c.Monitoring.MetricsEnabled),
		logger.StringField("storage_backend", c.Storage.Backend),
		logger.BoolField("database_configured", c.Database.URL != ""),
		logger.BoolField("redis_configured", c.Redis.URL != ""),
		logger.DurationField("memory_decay_window", c.Memory.DecayWindow),
		logger.DurationField("learning_history_retention", c.Learning.HistoryRetention),
	)
}
