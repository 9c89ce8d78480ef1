package config

import (
	"strings"

	"github.com/arloliu/go-opcua/client"
	"github.com/arloliu/go-opcua/filetransfer"
)

const (
	defaultNamespace    uint16 = 1
	defaultS3Region            = "us-east-1"
	defaultS3MaxRetries        = 10
)

// ApplyDefaults fills the unset fields of cfg with default values.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyKeepAliveDefaults(&cfg.KeepAlive)
	applyFileTransferDefaults(&cfg.FileTransfer)
	applyMetricsDefaults(&cfg.Metrics)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Backend == "" {
		cfg.Backend = "slog"
	}
	cfg.Backend = strings.ToLower(cfg.Backend)

	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyKeepAliveDefaults(cfg *KeepAliveConfig) {
	if cfg.TransportTimeout == 0 {
		cfg.TransportTimeout = client.DefaultTransportTimeout
	}
}

func applyFileTransferDefaults(cfg *FileTransferConfig) {
	if cfg.Filesystem.Type == "" {
		cfg.Filesystem.Type = "os"
	}
	cfg.Filesystem.Type = strings.ToLower(cfg.Filesystem.Type)

	for i := range cfg.Files {
		f := &cfg.Files[i]
		if f.Namespace == 0 {
			f.Namespace = defaultNamespace
		}
		if f.MaxSize == 0 {
			f.MaxSize = filetransfer.DefaultMaxSize
		}
		if f.MaxChunkSize == 0 {
			f.MaxChunkSize = filetransfer.DefaultMaxChunkSize
		}
		if f.S3 != nil {
			if f.S3.Region == "" {
				f.S3.Region = defaultS3Region
			}
			if f.S3.MaxRetries == 0 {
				f.S3.MaxRetries = defaultS3MaxRetries
			}
		}
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Listen == "" {
		cfg.Listen = ":9090"
	}
	if cfg.Path == "" {
		cfg.Path = "/metrics"
	}
}
