package filetransfer

import (
	"context"
	"errors"

	"github.com/spf13/afero"

	"github.com/arloliu/go-opcua/ua"
)

const (
	// DefaultMaxSize is the default maximum size of a file.
	DefaultMaxSize uint64 = 100_000_000
	// DefaultMaxChunkSize is the default maximum number of bytes returned by a single Read call.
	DefaultMaxChunkSize = 16 * 1024 * 1024
)

// RefreshFunc resynchronizes the content of a file from its real source.
// It is called before a file is opened in read-only mode.
type RefreshFunc func(ctx context.Context) error

// FileOption configures a file installed by Manager.InstallFile.
type FileOption interface {
	apply(*fileConfig) error
}

type fileConfig struct {
	maxSize      uint64
	mimeType     string
	fs           afero.Fs
	maxChunkSize int
	refresh      RefreshFunc
}

func defaultFileConfig() *fileConfig {
	return &fileConfig{
		maxSize:      DefaultMaxSize,
		fs:           afero.NewOsFs(),
		maxChunkSize: DefaultMaxChunkSize,
	}
}

type fileOptFunc struct {
	name      string
	applyFunc func(*fileConfig) error
}

func (o *fileOptFunc) apply(cfg *fileConfig) error { return o.applyFunc(cfg) }

func newFileOptFunc(name string, f func(*fileConfig) error) *fileOptFunc {
	return &fileOptFunc{name: name, applyFunc: f}
}

// WithMaxSize sets the maximum allowed size of the file. 0 selects DefaultMaxSize.
func WithMaxSize(size uint64) FileOption {
	return newFileOptFunc("WithMaxSize", func(cfg *fileConfig) error {
		if size == 0 {
			size = DefaultMaxSize
		}
		cfg.maxSize = size

		return nil
	})
}

// WithMimeType sets the MIME type exposed through the MimeType variable.
func WithMimeType(mimeType string) FileOption {
	return newFileOptFunc("WithMimeType", func(cfg *fileConfig) error {
		cfg.mimeType = mimeType
		return nil
	})
}

// WithFilesystem sets the filesystem backing the file. Defaults to the OS filesystem.
func WithFilesystem(fs afero.Fs) FileOption {
	return newFileOptFunc("WithFilesystem", func(cfg *fileConfig) error {
		if fs == nil {
			return errors.New("filesystem is nil")
		}
		cfg.fs = fs

		return nil
	})
}

// WithMaxChunkSize sets the maximum number of bytes returned by a single Read call.
// It should be between 1 and ua.MaxByteStringLength, 0 selects DefaultMaxChunkSize.
func WithMaxChunkSize(size int) FileOption {
	return newFileOptFunc("WithMaxChunkSize", func(cfg *fileConfig) error {
		if size == 0 {
			size = DefaultMaxChunkSize
		}
		if size < 1 || size > ua.MaxByteStringLength {
			return errors.New("max chunk size out of range [1, 16777216]")
		}
		cfg.maxChunkSize = size

		return nil
	})
}

// WithRefreshContent sets the hook that resynchronizes the file content before a read-only open.
func WithRefreshContent(f RefreshFunc) FileOption {
	return newFileOptFunc("WithRefreshContent", func(cfg *fileConfig) error {
		cfg.refresh = f
		return nil
	})
}
