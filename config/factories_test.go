package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-opcua/addrspace"
	"github.com/arloliu/go-opcua/client"
	"github.com/arloliu/go-opcua/filetransfer"
	"github.com/arloliu/go-opcua/filetransfer/s3source"
	"github.com/arloliu/go-opcua/logger"
	"github.com/arloliu/go-opcua/ua"
)

func TestNewLogger(t *testing.T) {
	for _, backend := range []string{"slog", "zap", "logrus"} {
		t.Run(backend, func(t *testing.T) {
			require := require.New(t)

			path := filepath.Join(t.TempDir(), "uafiled.log")
			l, closer, err := NewLogger(LoggingConfig{Level: "WARN", Backend: backend, Output: path})
			require.NoError(err)
			require.Equal(logger.WarnLevel, l.Level())

			l.Info("hidden")
			l.Warn("visible", "name", "recipe")
			require.NoError(closer.Close())

			data, err := os.ReadFile(path)
			require.NoError(err)

			lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
			require.Len(lines, 1)

			var entry map[string]any
			require.NoError(json.Unmarshal(lines[0], &entry))
			require.Equal("visible", entry["msg"])
			require.Equal("recipe", entry["name"])
		})
	}
}

func TestNewLogger_Errors(t *testing.T) {
	_, _, err := NewLogger(LoggingConfig{Backend: "stdlog", Output: "stdout"})
	require.ErrorContains(t, err, "unknown logging backend")

	_, _, err = NewLogger(LoggingConfig{Output: filepath.Join(t.TempDir(), "missing", "x.log")})
	require.ErrorContains(t, err, "failed to open log output")
}

func TestNewFilesystem(t *testing.T) {
	t.Run("os with base path", func(t *testing.T) {
		require := require.New(t)
		dir := t.TempDir()

		fs, err := NewFilesystem(FilesystemConfig{Type: "os", Options: map[string]any{"base_path": dir}})
		require.NoError(err)

		require.NoError(afero.WriteFile(fs, "/recipe.txt", []byte("hello"), 0o644))
		data, err := os.ReadFile(filepath.Join(dir, "recipe.txt"))
		require.NoError(err)
		require.Equal("hello", string(data))
	})

	t.Run("os read only with cache", func(t *testing.T) {
		require := require.New(t)
		dir := t.TempDir()
		require.NoError(os.WriteFile(filepath.Join(dir, "recipe.txt"), []byte("hello"), 0o644))

		fs, err := NewFilesystem(FilesystemConfig{Type: "os", Options: map[string]any{
			"base_path": dir,
			"read_only": true,
			"cache_ttl": "1m",
		}})
		require.NoError(err)
		require.IsType(&afero.ReadOnlyFs{}, fs)

		data, err := afero.ReadFile(fs, "/recipe.txt")
		require.NoError(err)
		require.Equal("hello", string(data))

		require.Error(afero.WriteFile(fs, "/recipe.txt", []byte("x"), 0o644))
	})

	t.Run("memory", func(t *testing.T) {
		require := require.New(t)

		fs, err := NewFilesystem(FilesystemConfig{Type: "memory"})
		require.NoError(err)
		require.IsType(&afero.MemMapFs{}, fs)

		fs, err = NewFilesystem(FilesystemConfig{Type: "memory", Options: map[string]any{"read_only": "true"}})
		require.NoError(err)
		require.IsType(&afero.ReadOnlyFs{}, fs)
	})

	t.Run("errors", func(t *testing.T) {
		require := require.New(t)

		_, err := NewFilesystem(FilesystemConfig{Type: "nfs"})
		require.ErrorContains(err, "unknown filesystem type")

		_, err = NewFilesystem(FilesystemConfig{Type: "os", Options: map[string]any{"root": "/srv"}})
		require.ErrorContains(err, "invalid os filesystem options")

		_, err = NewFilesystem(FilesystemConfig{Type: "os", Options: map[string]any{"cache_ttl": "soon"}})
		require.Error(err)
	})
}

func TestKeepAliveOptions(t *testing.T) {
	require := require.New(t)

	opts := KeepAliveOptions(KeepAliveConfig{TransportTimeout: 30 * time.Second, CheckTimeout: time.Second}, nil)
	require.Len(opts, 2)

	kaCfg, err := client.NewKeepAliveConfig(opts...)
	require.NoError(err)
	require.Equal(30*time.Second, kaCfg.TransportTimeout())
	require.Equal(time.Second, kaCfg.CheckTimeout())

	l := logger.NewMockLogger()
	opts = KeepAliveOptions(KeepAliveConfig{TransportTimeout: 30 * time.Second}, l)
	require.Len(opts, 3)

	kaCfg, err = client.NewKeepAliveConfig(opts...)
	require.NoError(err)
	require.Same(l, kaCfg.Logger())

	cfg, err := Load("")
	require.NoError(err)
	_, err = client.NewKeepAliveManager(nil, nil, KeepAliveOptions(cfg.KeepAlive, nil)...)
	require.NoError(err)
}

type fakeGetter struct {
	data []byte
}

func (f *fakeGetter) GetObject(_ context.Context, _ *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(f.data)),
		ContentLength: aws.Int64(int64(len(f.data))),
		ETag:          aws.String("v1"),
	}, nil
}

func TestInstallFiles(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	as, err := addrspace.New()
	require.NoError(err)
	mgr, err := filetransfer.NewManager(as)
	require.NoError(err)

	fs := afero.NewMemMapFs()
	require.NoError(afero.WriteFile(fs, "/local/recipe.txt", []byte("local"), 0o644))

	full := &Config{FileTransfer: FileTransferConfig{
		Files: []FileConfig{
			{Name: "Recipe", Path: "/local/recipe.txt", MimeType: "text/plain"},
			{Name: "Firmware", Path: "/remote/fw.bin", S3: &S3SourceConfig{Bucket: "b", Key: "fw.bin"}},
		},
	}}
	ApplyDefaults(full)
	cfg := full.FileTransfer

	var requested []S3SourceConfig
	newS3 := func(_ context.Context, c S3SourceConfig) (s3source.ObjectGetter, error) {
		requested = append(requested, c)
		return &fakeGetter{data: []byte("remote firmware")}, nil
	}

	files, err := InstallFiles(ctx, cfg, as, mgr, fs, newS3)
	require.NoError(err)
	require.Len(files, 2)
	require.Len(requested, 1)
	require.Equal("us-east-1", requested[0].Region)

	recipe := files[0]
	require.Equal(uint64(5), recipe.FileSize())
	require.Equal("text/plain", recipe.MimeType())
	require.Equal(ua.NewStringNodeID(1, "Recipe"), recipe.Object().NodeID())

	sc := &addrspace.SessionContext{SessionID: ua.NewNumericNodeID(0, 7)}
	fwID := files[1].Object().NodeID()

	res := as.Call(ctx, sc, fwID, filetransfer.MethodOpen, []ua.Variant{ua.NewByteVariant(byte(filetransfer.OpenModeRead))})
	require.Equal(ua.Good, res.Status)
	handle, ok := res.Outputs[0].UInt32()
	require.True(ok)

	res = as.Call(ctx, sc, fwID, filetransfer.MethodRead, []ua.Variant{ua.NewUInt32Variant(handle), ua.NewInt32Variant(100)})
	require.Equal(ua.Good, res.Status)
	content, ok := res.Outputs[0].ByteString()
	require.True(ok)
	require.Equal("remote firmware", string(content))
}

func TestInstallFiles_Errors(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	as, err := addrspace.New()
	require.NoError(err)
	mgr, err := filetransfer.NewManager(as)
	require.NoError(err)
	fs := afero.NewMemMapFs()

	cfg := FileTransferConfig{Files: []FileConfig{
		{Name: "A", Namespace: 1, Path: "/a"},
		{Name: "A", Namespace: 1, Path: "/b"},
	}}
	files, err := InstallFiles(ctx, cfg, as, mgr, fs, nil)
	require.ErrorIs(err, addrspace.ErrNodeExists)
	require.Len(files, 1)

	s3Err := errors.New("no credentials")
	cfg = FileTransferConfig{Files: []FileConfig{
		{Name: "B", Namespace: 1, Path: "/b", S3: &S3SourceConfig{Bucket: "b", Key: "k"}},
	}}
	_, err = InstallFiles(ctx, cfg, as, mgr, fs, func(context.Context, S3SourceConfig) (s3source.ObjectGetter, error) {
		return nil, s3Err
	})
	require.ErrorIs(err, s3Err)
}
