// Package s3source resynchronizes files served by filetransfer from objects stored in S3.
//
// A Source downloads one object into a file of an afero.Fs, typically an in-memory filesystem, and is
// installed as the content refresh hook of the file so every read-only Open serves the current object:
//
//	src, err := s3source.New(client, "bucket", "recipes/current.json", fs, "/recipes/current.json")
//	if err != nil {
//		return err
//	}
//	_, err = mgr.InstallFile(obj, "/recipes/current.json",
//		filetransfer.WithFilesystem(fs),
//		filetransfer.WithRefreshContent(src.Refresh),
//	)
package s3source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/spf13/afero"

	"github.com/arloliu/go-opcua/filetransfer"
	"github.com/arloliu/go-opcua/logger"
)

var (
	// ErrObjectNotFound indicates that the source object does not exist.
	ErrObjectNotFound = errors.New("source object not found")

	// ErrObjectTooLarge indicates that the source object exceeds the maximum file size.
	ErrObjectTooLarge = errors.New("source object too large")
)

// ObjectGetter is the subset of the S3 API used by a Source. It is satisfied by *s3.Client.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var _ ObjectGetter = (*s3.Client)(nil)

// Source copies an S3 object into a file.
type Source struct {
	client   ObjectGetter
	bucket   string
	key      string
	fs       afero.Fs
	filename string
	maxSize  uint64
	logger   logger.Logger

	// serializes concurrent refreshes of the same file
	mu   sync.Mutex
	etag string
}

// Option configures a Source.
type Option func(*Source)

// WithMaxSize sets the largest object accepted. Defaults to filetransfer.DefaultMaxSize.
func WithMaxSize(size uint64) Option {
	return func(s *Source) {
		if size > 0 {
			s.maxSize = size
		}
	}
}

// WithLogger sets the logger of the source.
func WithLogger(l logger.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a source copying s3://bucket/key into filename on fs.
func New(client ObjectGetter, bucket, key string, fs afero.Fs, filename string, opts ...Option) (*Source, error) {
	switch {
	case client == nil:
		return nil, errors.New("s3 client is nil")
	case bucket == "" || key == "":
		return nil, errors.New("bucket and key are required")
	case fs == nil:
		return nil, errors.New("filesystem is nil")
	case filename == "":
		return nil, filetransfer.ErrFilenameEmpty
	}

	s := &Source{
		client:   client,
		bucket:   bucket,
		key:      key,
		fs:       fs,
		filename: filename,
		maxSize:  filetransfer.DefaultMaxSize,
		logger:   logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("bucket", bucket, "key", key)

	return s, nil
}

// ETag returns the entity tag of the last downloaded object.
func (s *Source) ETag() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.etag
}

// Refresh downloads the object and replaces the content of the file.
// It has the signature of filetransfer.RefreshFunc.
func (s *Source) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return fmt.Errorf("s3://%s/%s: %w", s.bucket, s.key, ErrObjectNotFound)
		}

		return fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer result.Body.Close()

	if result.ContentLength != nil && *result.ContentLength > 0 && uint64(*result.ContentLength) > s.maxSize {
		return fmt.Errorf("s3://%s/%s: %w", s.bucket, s.key, ErrObjectTooLarge)
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(result.Body, int64(s.maxSize)+1))
	if err != nil {
		return fmt.Errorf("failed to download object: %w", err)
	}
	if uint64(n) > s.maxSize {
		return fmt.Errorf("s3://%s/%s: %w", s.bucket, s.key, ErrObjectTooLarge)
	}

	if err := s.fs.MkdirAll(path.Dir(s.filename), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := filetransfer.WriteFile(s.fs, s.filename, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	s.etag = aws.ToString(result.ETag)
	s.logger.Debug("file refreshed from S3", "file", s.filename, "size", n, "etag", s.etag)

	return nil
}
