package config

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLoggingConfig struct {
	Level  string `env:"LOG_LEVEL" yaml:"log_level" default:"info"`
	Format string `env:"LOG_FORMAT" yaml:"log_format" default:"json"`
}

type testStorageConfig struct {
	Backend string `env:"STORAGE_BACKEND" yaml:"backend" default:"local"`
	BaseDir string `env:"STORAGE_BASE_DIR" yaml:"base_dir" default:"./data"`
}

type testConfig struct {
	Logging   testLoggingConfig `yaml:",inline"`
	Service   string            `env:"SERVICE_NAME" yaml:"service" default:"context-engine"`
	Timeout   time.Duration     `env:"REQUEST_TIMEOUT" yaml:"timeout" default:"30s"`
	Threshold float64           `env:"SCORE_THRESHOLD" yaml:"score_threshold" default:"0.3"`
	Storage   testStorageConfig `yaml:"storage,inline"`
}

func (c testConfig) Validate() error {
	var result error
	if err := OneOf("log_level", c.Logging.Level, "debug", "info", "warn", "error"); err != nil {
		result = multierror.Append(result, err)
	}
	if c.Timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("timeout must be greater than 0"))
	}
	return result
}

func TestGetConfigFromEnvVars(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		want    testConfig
		wantErr bool
	}{
		{
			name:    "defaults only",
			envVars: map[string]string{},
			want: testConfig{
				Logging:   testLoggingConfig{Level: "info", Format: "json"},
				Service:   "context-engine",
				Timeout:   30 * time.Second,
				Threshold: 0.3,
				Storage:   testStorageConfig{Backend: "local", BaseDir: "./data"},
			},
		},
		{
			name: "env overrides",
			envVars: map[string]string{
				"LOG_LEVEL":       "debug",
				"SERVICE_NAME":    "engine-test",
				"REQUEST_TIMEOUT": "5s",
				"SCORE_THRESHOLD": "0.55",
				"STORAGE_BACKEND": "s3",
			},
			want: testConfig{
				Logging:   testLoggingConfig{Level: "debug", Format: "json"},
				Service:   "engine-test",
				Timeout:   5 * time.Second,
				Threshold: 0.55,
				Storage:   testStorageConfig{Backend: "s3", BaseDir: "./data"},
			},
		},
		{
			name: "explicit zero from env is not replaced by the default",
			envVars: map[string]string{
				"SCORE_THRESHOLD": "0",
			},
			want: testConfig{
				Logging:   testLoggingConfig{Level: "info", Format: "json"},
				Service:   "context-engine",
				Timeout:   30 * time.Second,
				Threshold: 0,
				Storage:   testStorageConfig{Backend: "local", BaseDir: "./data"},
			},
		},
		{
			name: "invalid duration",
			envVars: map[string]string{
				"REQUEST_TIMEOUT": "not-a-duration",
			},
			wantErr: true,
		},
		{
			name: "invalid log level fails validation",
			envVars: map[string]string{
				"LOG_LEVEL": "shouting",
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.envVars {
				t.Setenv(k, v)
			}

			var got testConfig
			err := GetConfigFromEnvVars(&got)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetConfigFromYAMLFile(t *testing.T) {
	tmpFile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	require.NoError(t, err)

	content := `
log_level: warn
service: yaml-engine
timeout: 10s
backend: s3
base_dir: /var/data
`
	_, err = tmpFile.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, tmpFile.Close())

	var cfg testConfig
	err = GetConfig(&cfg, tmpFile.Name(), false)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "yaml-engine", cfg.Service)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, "s3", cfg.Storage.Backend)
	assert.Equal(t, "/var/data", cfg.Storage.BaseDir)
}

func TestGetConfigEnvOverridesFile(t *testing.T) {
	tmpFile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	require.NoError(t, err)

	_, err = tmpFile.WriteString("service: from-file\n")
	require.NoError(t, err)
	require.NoError(t, tmpFile.Close())

	t.Setenv("SERVICE_NAME", "from-env")

	var cfg testConfig
	err = GetConfig(&cfg, tmpFile.Name(), false)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Service)
}

func TestGetConfigMissingFileFallsBackWhenAllowed(t *testing.T) {
	var cfg testConfig
	err := GetConfig(&cfg, "/nonexistent/path/config.yaml", true)
	require.NoError(t, err)
	assert.Equal(t, "context-engine", cfg.Service)

	err = GetConfig(&cfg, "/nonexistent/path/config.yaml", false)
	require.Error(t, err)
}

func TestOneOf(t *testing.T) {
	assert.NoError(t, OneOf("log_level", "warn", "debug", "info", "warn", "error"))
	assert.NoError(t, OneOf("log_level", "WARN", "debug", "info", "warn", "error"))

	err := OneOf("storage backend", "ftp", "local", "s3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage backend")
	assert.Contains(t, err.Error(), `"ftp"`)
}
