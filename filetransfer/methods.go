package filetransfer

import (
	"context"
	"errors"
	"io"
	"math"

	"github.com/arloliu/go-opcua/addrspace"
	"github.com/arloliu/go-opcua/logger"
	"github.com/arloliu/go-opcua/ua"
)

// messageSafetyMargin is kept free in a response for the headers around the read data.
const messageSafetyMargin = 1024

// lookup returns the entry of handle if the calling session owns it and it belongs to data.
func (m *Manager) lookup(data *FileTypeData, sc *addrspace.SessionContext, handle uint32) (*FileAccess, bool) {
	fa, ok := m.table.Lookup(handle, sc.SessionID)
	if !ok {
		return nil, false
	}

	if fa.data != data {
		m.logger.Error("file handle belongs to another file", "handle", handle, "file", data.filename)
		return nil, false
	}

	return fa, true
}

// handleArg extracts the file handle from the first input argument.
func handleArg(args []ua.Variant) (uint32, bool) {
	if len(args) < 1 {
		return 0, false
	}

	return args[0].UInt32()
}

// openMethod implements Open(mode Byte) -> fileHandle UInt32.
func (m *Manager) openMethod(data *FileTypeData) addrspace.MethodFunc {
	return func(ctx context.Context, sc *addrspace.SessionContext, args []ua.Variant) addrspace.CallResult {
		if len(args) < 1 {
			return addrspace.NewCallResult(ua.BadInvalidArgument)
		}
		raw, ok := args[0].Byte()
		if !ok {
			return addrspace.NewCallResult(ua.BadInvalidArgument)
		}

		mode, err := ParseOpenMode(raw)
		if err != nil {
			m.logger.Error("invalid open mode", "mode", raw, "error", err)
			return addrspace.NewCallResult(ua.BadInvalidArgument)
		}

		handle := m.table.Allocate(mode, sc.SessionID, data)
		fa, ok := m.lookup(data, sc, handle)
		if !ok {
			return addrspace.NewCallResult(ua.BadInvalidArgument)
		}

		fail := func(msg string, err error) addrspace.CallResult {
			m.table.Release(handle)
			m.metrics.incOpenErrCount()
			m.metrics.incIOErrCount()
			data.logger.Error(msg, "handle", handle, "mode", mode, "error", err)

			return addrspace.NewCallResult(ua.BadUnexpectedError)
		}

		if mode == OpenModeRead {
			if err := data.RefreshContent(ctx); err != nil {
				return fail("failed to refresh file content", err)
			}
		}

		fa.mu.Lock()
		defer fa.mu.Unlock()

		if fa.released {
			// closed by the session before the open completed
			return addrspace.NewCallResult(ua.BadInvalidState)
		}

		f, err := data.fs.OpenFile(data.filename, mode.osFlags(), 0o644)
		if err != nil {
			return fail("failed to open file", err)
		}

		info, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return fail("failed to stat file", err)
		}

		fa.file = f
		fa.position = 0
		fa.size = uint64(info.Size())
		if mode.Append() {
			fa.position = fa.size
		}
		if mode.EraseExisting() {
			fa.size = 0
		}
		if mode.CanWrite() && !mode.Append() {
			// the file was truncated by the open
			data.setFileSize(fa.size)
		}

		data.incOpenCount()
		m.metrics.incOpenCount()

		if m.logger.Level() == logger.DebugLevel {
			data.logger.Debug("file opened", "handle", handle, "mode", mode, "session", sc.SessionID, "size", fa.size)
		}

		return addrspace.NewCallResult(ua.Good, ua.NewUInt32Variant(handle))
	}
}

// closeMethod implements Close(fileHandle UInt32).
func (m *Manager) closeMethod(data *FileTypeData) addrspace.MethodFunc {
	return func(_ context.Context, sc *addrspace.SessionContext, args []ua.Variant) addrspace.CallResult {
		handle, ok := handleArg(args)
		if !ok {
			return addrspace.NewCallResult(ua.BadInvalidArgument)
		}

		fa, ok := m.lookup(data, sc, handle)
		if !ok {
			return addrspace.NewCallResult(ua.BadInvalidArgument)
		}

		// only the call removing the entry closes it, a concurrent Close or session cleanup lost
		if !m.table.Release(handle) {
			return addrspace.NewCallResult(ua.BadInvalidArgument)
		}

		wasOpen, err := fa.shutdown()
		if wasOpen {
			data.decOpenCount()
			m.metrics.incCloseCount()
		}

		if err != nil {
			m.metrics.incIOErrCount()
			data.logger.Error("failed to close file", "handle", handle, "error", err)

			return addrspace.NewCallResult(ua.BadUnexpectedError)
		}

		return addrspace.NewCallResult(ua.Good)
	}
}

// readMethod implements Read(fileHandle UInt32, length Int32) -> data ByteString.
func (m *Manager) readMethod(data *FileTypeData) addrspace.MethodFunc {
	return func(_ context.Context, sc *addrspace.SessionContext, args []ua.Variant) addrspace.CallResult {
		if len(args) < 2 {
			return addrspace.NewCallResult(ua.BadInvalidArgument)
		}
		handle, ok := args[0].UInt32()
		if !ok {
			return addrspace.NewCallResult(ua.BadInvalidArgument)
		}
		length, ok := args[1].Int32()
		if !ok || length < 0 {
			return addrspace.NewCallResult(ua.BadInvalidArgument)
		}

		fa, ok := m.lookup(data, sc, handle)
		if !ok || !fa.mode.CanRead() {
			return addrspace.NewCallResult(ua.BadInvalidState)
		}

		fa.mu.Lock()
		defer fa.mu.Unlock()

		if fa.file == nil {
			return addrspace.NewCallResult(ua.BadInvalidState)
		}

		n := clampReadLength(int64(length), data.maxChunkSize, sc.MaxMessageSize, fa.size, fa.position)
		buf := make([]byte, n)

		var read int
		if n > 0 {
			var err error
			read, err = fa.file.ReadAt(buf, int64(fa.position))
			if err != nil && !errors.Is(err, io.EOF) {
				m.metrics.incIOErrCount()
				data.logger.Error("read error", "handle", handle, "error", err)

				return addrspace.NewCallResult(ua.BadUnexpectedError)
			}
		}

		fa.position += uint64(read)
		m.metrics.addBytesRead(read)

		return addrspace.NewCallResult(ua.Good, ua.NewByteStringVariant(buf[:read]))
	}
}

// clampReadLength shrinks the requested length, in order, to the maximum chunk size, the maximum
// ByteString length, the maximum message size less a safety margin and the bytes remaining after
// position.
func clampReadLength(length int64, maxChunkSize int, maxMessageSize int, size uint64, position uint64) int64 {
	if length > int64(maxChunkSize) {
		length = int64(maxChunkSize)
	}

	if length > ua.MaxByteStringLength {
		length = ua.MaxByteStringLength
	}

	if limit := int64(maxMessageSize) - messageSafetyMargin; limit > 0 && length > limit {
		length = limit
	}

	var remaining uint64
	if size > position {
		remaining = size - position
	}
	if remaining < uint64(length) {
		length = int64(remaining)
	}

	return length
}

// writeMethod implements Write(fileHandle UInt32, data ByteString).
//
// A write ending past the maximum file size is rejected before anything is written.
func (m *Manager) writeMethod(data *FileTypeData) addrspace.MethodFunc {
	return func(_ context.Context, sc *addrspace.SessionContext, args []ua.Variant) addrspace.CallResult {
		if len(args) < 2 {
			return addrspace.NewCallResult(ua.BadInvalidArgument)
		}
		handle, ok := args[0].UInt32()
		if !ok {
			return addrspace.NewCallResult(ua.BadInvalidArgument)
		}
		buf, ok := args[1].ByteString()
		if !ok {
			return addrspace.NewCallResult(ua.BadInvalidArgument)
		}

		fa, ok := m.lookup(data, sc, handle)
		if !ok {
			return addrspace.NewCallResult(ua.BadInvalidArgument)
		}
		if !fa.mode.CanWrite() {
			return addrspace.NewCallResult(ua.BadInvalidState)
		}

		fa.mu.Lock()
		defer fa.mu.Unlock()

		if fa.file == nil {
			return addrspace.NewCallResult(ua.BadInvalidState)
		}
		if fa.position > math.MaxInt64-uint64(len(buf)) {
			return addrspace.NewCallResult(ua.BadInvalidArgument)
		}
		if end := fa.position + uint64(len(buf)); end > data.maxSize {
			data.logger.Warn("write exceeds the maximum file size",
				"handle", handle, "position", fa.position, "length", len(buf), "maxSize", data.maxSize)

			return addrspace.NewCallResult(ua.BadOutOfRange)
		}

		written, err := fa.file.WriteAt(buf, int64(fa.position))
		if err != nil {
			m.metrics.incIOErrCount()
			data.logger.Error("write error", "handle", handle, "error", err)

			return addrspace.NewCallResult(ua.BadUnexpectedError)
		}

		fa.position += uint64(written)
		if fa.position > fa.size {
			fa.size = fa.position
		}
		data.growFileSize(fa.position)
		m.metrics.addBytesWritten(written)

		return addrspace.NewCallResult(ua.Good)
	}
}

// getPositionMethod implements GetPosition(fileHandle UInt32) -> position UInt64.
func (m *Manager) getPositionMethod(data *FileTypeData) addrspace.MethodFunc {
	return func(_ context.Context, sc *addrspace.SessionContext, args []ua.Variant) addrspace.CallResult {
		handle, ok := handleArg(args)
		if !ok {
			return addrspace.NewCallResult(ua.BadInvalidArgument)
		}

		fa, ok := m.lookup(data, sc, handle)
		if !ok {
			return addrspace.NewCallResult(ua.BadInvalidArgument)
		}

		return addrspace.NewCallResult(ua.Good, ua.NewUInt64Variant(fa.Position()))
	}
}

// setPositionMethod implements SetPosition(fileHandle UInt32, position UInt64).
//
// The position isn't checked against the file size: reading past the end returns no data and
// writing past the end extends the file.
func (m *Manager) setPositionMethod(data *FileTypeData) addrspace.MethodFunc {
	return func(_ context.Context, sc *addrspace.SessionContext, args []ua.Variant) addrspace.CallResult {
		if len(args) < 2 {
			return addrspace.NewCallResult(ua.BadInvalidArgument)
		}
		handle, ok := args[0].UInt32()
		if !ok {
			return addrspace.NewCallResult(ua.BadInvalidArgument)
		}
		position, ok := args[1].UInt64()
		if !ok {
			return addrspace.NewCallResult(ua.BadInvalidArgument)
		}

		fa, ok := m.lookup(data, sc, handle)
		if !ok {
			return addrspace.NewCallResult(ua.BadInvalidArgument)
		}

		fa.mu.Lock()
		fa.position = position
		fa.mu.Unlock()

		return addrspace.NewCallResult(ua.Good)
	}
}
