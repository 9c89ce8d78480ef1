// Package config loads the configuration of the uafiled service.
//
// Configuration is read from a YAML file and can be overridden by environment variables prefixed with
// UAFILE_, with nested keys joined by underscores (UAFILE_LOGGING_LEVEL=debug). Defaults are applied
// after loading and the result is validated before use.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "UAFILE"

// Config is the configuration of the uafiled service.
type Config struct {
	Logging      LoggingConfig      `mapstructure:"logging" yaml:"logging"`
	KeepAlive    KeepAliveConfig    `mapstructure:"keepalive" yaml:"keepalive"`
	FileTransfer FileTransferConfig `mapstructure:"filetransfer" yaml:"filetransfer"`
	Metrics      MetricsConfig      `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig selects the logger implementation and its output.
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN or ERROR.
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Backend is one of slog, zap or logrus.
	Backend string `mapstructure:"backend" yaml:"backend" validate:"required,oneof=slog zap logrus"`

	// Output is stdout, stderr or a file path.
	Output string `mapstructure:"output" yaml:"output" validate:"required"`

	// AddSource adds the source location to slog records.
	AddSource bool `mapstructure:"add_source" yaml:"add_source"`
}

// KeepAliveConfig configures the session keep-alive of OPC UA clients.
//
// uafiled serves files and opens no client session, so it only validates this section. Applications
// embedding go-opcua convert it with KeepAliveOptions and pass the result to
// client.NewKeepAliveManager, with Interval as the override given to Start.
type KeepAliveConfig struct {
	// Interval overrides the check interval derived from the session timeout. 0 derives it.
	Interval time.Duration `mapstructure:"interval" yaml:"interval" validate:"gte=0"`

	// TransportTimeout caps the check interval.
	TransportTimeout time.Duration `mapstructure:"transport_timeout" yaml:"transport_timeout" validate:"gte=1s,lte=10m"`

	// CheckTimeout bounds each check. 0 disables the bound.
	CheckTimeout time.Duration `mapstructure:"check_timeout" yaml:"check_timeout" validate:"gte=0,lte=10m"`
}

// FileTransferConfig describes the files exposed as FileType objects.
type FileTransferConfig struct {
	Filesystem FilesystemConfig `mapstructure:"filesystem" yaml:"filesystem"`
	Files      []FileConfig     `mapstructure:"files" yaml:"files" validate:"dive"`
}

// FilesystemConfig selects the filesystem backing the files.
type FilesystemConfig struct {
	// Type is os or memory.
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=os memory"`

	// Options holds type specific options, see OSFilesystemOptions and MemoryFilesystemOptions.
	Options map[string]any `mapstructure:"options" yaml:"options"`
}

// FileConfig describes one FileType object.
type FileConfig struct {
	// Name is the browse name of the object and the string identifier of its node id.
	Name string `mapstructure:"name" yaml:"name" validate:"required"`

	// Namespace is the namespace index of the node id.
	Namespace uint16 `mapstructure:"namespace" yaml:"namespace"`

	// Path is the path of the file on the filesystem.
	Path string `mapstructure:"path" yaml:"path" validate:"required,startswith=/"`

	MimeType     string `mapstructure:"mime_type" yaml:"mime_type"`
	MaxSize      uint64 `mapstructure:"max_size" yaml:"max_size"`
	MaxChunkSize int    `mapstructure:"max_chunk_size" yaml:"max_chunk_size" validate:"gte=0,lte=16777216"`

	// S3 refreshes the file from an S3 object before each read-only open.
	S3 *S3SourceConfig `mapstructure:"s3" yaml:"s3,omitempty" validate:"omitempty"`
}

// S3SourceConfig locates the S3 object a file is refreshed from.
type S3SourceConfig struct {
	Bucket          string `mapstructure:"bucket" yaml:"bucket" validate:"required"`
	Key             string `mapstructure:"key" yaml:"key" validate:"required"`
	Region          string `mapstructure:"region" yaml:"region"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint" validate:"omitempty,url"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
	MaxRetries      int    `mapstructure:"max_retries" yaml:"max_retries" validate:"gte=0"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path" validate:"omitempty,startswith=/"`
}

// Load reads the configuration from configPath, applies defaults and validates the result.
//
// An empty configPath loads the defaults, still honoring environment overrides. A configPath that does
// not exist is an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("failed to access config file: %w", err)
		}

		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper binds the environment overrides of every scalar key, so they apply even without a file.
func setupViper(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range []string{
		"logging.level", "logging.backend", "logging.output", "logging.add_source",
		"keepalive.interval", "keepalive.transport_timeout", "keepalive.check_timeout",
		"filetransfer.filesystem.type",
		"metrics.enabled", "metrics.listen", "metrics.path",
	} {
		_ = v.BindEnv(key)
	}
}
