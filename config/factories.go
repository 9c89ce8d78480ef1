package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"

	"github.com/arloliu/go-opcua/addrspace"
	"github.com/arloliu/go-opcua/client"
	"github.com/arloliu/go-opcua/filetransfer"
	"github.com/arloliu/go-opcua/filetransfer/s3source"
	"github.com/arloliu/go-opcua/logger"
	"github.com/arloliu/go-opcua/ua"
)

// OSFilesystemOptions are the options of the os filesystem.
type OSFilesystemOptions struct {
	// BasePath restricts file paths to a directory.
	BasePath string `mapstructure:"base_path"`

	// ReadOnly rejects every write, files are reported as not writable.
	ReadOnly bool `mapstructure:"read_only"`

	// CacheTTL caches file content in memory for the given duration. 0 disables the cache.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// MemoryFilesystemOptions are the options of the memory filesystem.
type MemoryFilesystemOptions struct {
	ReadOnly bool `mapstructure:"read_only"`
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type loggerCloser struct {
	l      logger.Logger
	closer io.Closer
}

func (c *loggerCloser) Close() error {
	if s, ok := c.l.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}

	return c.closer.Close()
}

// NewLogger creates the logger described by cfg.
//
// The returned closer flushes the logger and closes its output file, if any.
func NewLogger(cfg LoggingConfig) (logger.Logger, io.Closer, error) {
	var (
		w      io.Writer
		closer io.Closer = nopCloser{}
	)

	switch cfg.Output {
	case "", "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log output: %w", err)
		}
		w = f
		closer = f
	}

	level := logger.ParseLevel(cfg.Level)

	var l logger.Logger
	switch cfg.Backend {
	case "", "slog":
		l = logger.NewSlogWithWriter(w, level, cfg.AddSource)
	case "zap":
		l = logger.NewZap(w, level)
	case "logrus":
		l = logger.NewLogrus(w, level)
	default:
		_ = closer.Close()
		return nil, nil, fmt.Errorf("unknown logging backend: %s", cfg.Backend)
	}

	return l, &loggerCloser{l: l, closer: closer}, nil
}

// NewFilesystem creates the filesystem described by cfg.
//
// The os filesystem is wrapped, innermost first, by a base path, an in-memory read cache and a read-only
// layer, each one only when configured.
func NewFilesystem(cfg FilesystemConfig) (afero.Fs, error) {
	switch cfg.Type {
	case "", "os":
		var opts OSFilesystemOptions
		if err := decodeOptions(cfg.Options, &opts); err != nil {
			return nil, fmt.Errorf("invalid os filesystem options: %w", err)
		}

		var fs afero.Fs = afero.NewOsFs()
		if opts.BasePath != "" {
			fs = afero.NewBasePathFs(fs, opts.BasePath)
		}
		if opts.CacheTTL > 0 {
			fs = afero.NewCacheOnReadFs(fs, afero.NewMemMapFs(), opts.CacheTTL)
		}
		if opts.ReadOnly {
			fs = afero.NewReadOnlyFs(fs)
		}

		return fs, nil

	case "memory":
		var opts MemoryFilesystemOptions
		if err := decodeOptions(cfg.Options, &opts); err != nil {
			return nil, fmt.Errorf("invalid memory filesystem options: %w", err)
		}

		var fs afero.Fs = afero.NewMemMapFs()
		if opts.ReadOnly {
			fs = afero.NewReadOnlyFs(fs)
		}

		return fs, nil

	default:
		return nil, fmt.Errorf("unknown filesystem type: %s", cfg.Type)
	}
}

func decodeOptions(input map[string]any, output any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		Result:           output,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}

// KeepAliveOptions converts cfg into keep-alive options.
func KeepAliveOptions(cfg KeepAliveConfig, l logger.Logger) []client.KeepAliveOption {
	opts := []client.KeepAliveOption{
		client.WithTransportTimeout(cfg.TransportTimeout),
		client.WithCheckTimeout(cfg.CheckTimeout),
	}
	if l != nil {
		opts = append(opts, client.WithKeepAliveLogger(l))
	}

	return opts
}

// NewS3Client creates an S3 client for cfg.
//
// A custom endpoint switches the client to path-style addressing, as required by MinIO and Localstack.
func NewS3Client(ctx context.Context, cfg S3SourceConfig) (*s3.Client, error) {
	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultS3MaxRetries
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3ClientFactory creates the object getter of an S3 source.
type S3ClientFactory func(ctx context.Context, cfg S3SourceConfig) (s3source.ObjectGetter, error)

// DefaultS3ClientFactory creates AWS S3 clients with NewS3Client.
func DefaultS3ClientFactory(ctx context.Context, cfg S3SourceConfig) (s3source.ObjectGetter, error) {
	return NewS3Client(ctx, cfg)
}

// InstallFiles adds a FileType object to as for every configured file and installs it in mgr.
//
// Files with an S3 source are downloaded from S3 before each read-only open. newS3 defaults to
// DefaultS3ClientFactory.
func InstallFiles(ctx context.Context, cfg FileTransferConfig, as *addrspace.AddressSpace,
	mgr *filetransfer.Manager, fs afero.Fs, newS3 S3ClientFactory,
) ([]*filetransfer.FileTypeData, error) {
	if newS3 == nil {
		newS3 = DefaultS3ClientFactory
	}

	files := make([]*filetransfer.FileTypeData, 0, len(cfg.Files))
	for i, f := range cfg.Files {
		obj, err := as.AddObject(ua.NewStringNodeID(f.Namespace, f.Name), f.Name)
		if err != nil {
			return files, fmt.Errorf("filetransfer.files[%d]: %w", i, err)
		}

		opts := []filetransfer.FileOption{
			filetransfer.WithFilesystem(fs),
			filetransfer.WithMaxSize(f.MaxSize),
			filetransfer.WithMaxChunkSize(f.MaxChunkSize),
		}
		if f.MimeType != "" {
			opts = append(opts, filetransfer.WithMimeType(f.MimeType))
		}

		if f.S3 != nil {
			getter, err := newS3(ctx, *f.S3)
			if err != nil {
				return files, fmt.Errorf("filetransfer.files[%d]: %w", i, err)
			}

			src, err := s3source.New(getter, f.S3.Bucket, f.S3.Key, fs, f.Path,
				s3source.WithMaxSize(f.MaxSize),
				s3source.WithLogger(as.Logger()),
			)
			if err != nil {
				return files, fmt.Errorf("filetransfer.files[%d]: %w", i, err)
			}
			opts = append(opts, filetransfer.WithRefreshContent(src.Refresh))
		}

		data, err := mgr.InstallFile(obj, f.Path, opts...)
		if err != nil {
			return files, fmt.Errorf("filetransfer.files[%d]: %w", i, err)
		}
		files = append(files, data)
	}

	return files, nil
}
