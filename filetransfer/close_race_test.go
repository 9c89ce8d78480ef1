package filetransfer

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-opcua/ua"
)

// slowCloseFs returns files whose Close blocks for delay, widening the window of concurrent closes.
type slowCloseFs struct {
	afero.Fs
	delay time.Duration
}

type slowCloseFile struct {
	afero.File
	delay time.Duration
}

func (f *slowCloseFile) Close() error {
	time.Sleep(f.delay)
	return f.File.Close()
}

func (fs *slowCloseFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	f, err := fs.Fs.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}

	return &slowCloseFile{File: f, delay: fs.delay}, nil
}

func newSlowCloseFixture(t *testing.T) *fixture {
	t.Helper()

	fs := &slowCloseFs{Fs: afero.NewMemMapFs(), delay: 50 * time.Millisecond}
	require.NoError(t, fs.MkdirAll("/data", 0o755))
	require.NoError(t, WriteFile(fs, testFilename, []byte("hello")))

	f := newFixture(t, WithFilesystem(fs))
	f.fs = fs

	return f
}

// concurrently runs every fn at the same time and waits for all of them.
func concurrently(fns ...func()) {
	var wg sync.WaitGroup
	start := make(chan struct{})
	for _, fn := range fns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			fn()
		}()
	}
	close(start)
	wg.Wait()
}

func TestClose_Concurrent(t *testing.T) {
	require := require.New(t)
	f := newSlowCloseFixture(t)
	sc := newSession(1)

	f.open(sc, OpenModeRead)
	h := f.open(sc, OpenModeRead)
	require.Equal(uint16(2), f.data.OpenCount())

	statuses := make([]ua.StatusCode, 2)
	concurrently(
		func() { statuses[0] = f.call(sc, MethodClose, ua.NewUInt32Variant(h)).Status },
		func() { statuses[1] = f.call(sc, MethodClose, ua.NewUInt32Variant(h)).Status },
	)

	require.ElementsMatch([]ua.StatusCode{ua.Good, ua.BadInvalidArgument}, statuses)
	require.Equal(uint16(1), f.data.OpenCount())
	require.Equal(1, f.mgr.HandleTable().Len())
	require.Equal(uint64(1), f.mgr.Metrics().CloseCount.Load())
	require.Equal(int64(1), f.mgr.Metrics().OpenHandleGauge.Load())
}

func TestClose_ConcurrentWithSessionCleanup(t *testing.T) {
	require := require.New(t)
	f := newSlowCloseFixture(t)
	sa, sb := newSession(1), newSession(2)

	h := f.open(sa, OpenModeRead)
	f.open(sb, OpenModeRead)
	require.Equal(uint16(2), f.data.OpenCount())

	var status ua.StatusCode
	concurrently(
		func() { status = f.call(sa, MethodClose, ua.NewUInt32Variant(h)).Status },
		func() { f.as.CloseSession(sa.SessionID) },
	)

	require.Contains([]ua.StatusCode{ua.Good, ua.BadInvalidArgument}, status)
	require.Equal(uint16(1), f.data.OpenCount())
	require.Equal(1, f.mgr.HandleTable().Len())
	require.Equal(uint64(1), f.mgr.Metrics().CloseCount.Load())
	require.Equal(int64(1), f.mgr.Metrics().OpenHandleGauge.Load())

	_, ok := f.mgr.HandleTable().Lookup(h, sa.SessionID)
	require.False(ok)
}

func TestWrite_MaxSize(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, WithMaxSize(10))
	sc := newSession(1)

	h := f.open(sc, OpenModeWrite)

	require.Equal(ua.Good, f.call(sc, MethodSetPosition, ua.NewUInt32Variant(h), ua.NewUInt64Variant(1<<20)).Status)
	require.Equal(ua.BadOutOfRange, f.write(sc, h, []byte("x")))
	require.Zero(f.data.FileSize())
	require.Equal(uint64(1<<20), f.position(sc, h))

	info, err := f.fs.Stat(testFilename)
	require.NoError(err)
	require.Zero(info.Size())

	require.Equal(ua.Good, f.call(sc, MethodSetPosition, ua.NewUInt32Variant(h), ua.NewUInt64Variant(0)).Status)
	require.Equal(ua.Good, f.write(sc, h, []byte("0123456789")))
	require.Equal(uint64(10), f.data.FileSize())

	require.Equal(ua.BadOutOfRange, f.write(sc, h, []byte("a")))
	require.Equal(uint64(10), f.data.FileSize())
	require.Equal(uint64(10), f.position(sc, h))
	require.Zero(f.mgr.Metrics().IOErrCount.Load())
}
