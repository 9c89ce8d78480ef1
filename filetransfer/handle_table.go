package filetransfer

import (
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/spf13/afero"

	"github.com/arloliu/go-opcua/logger"
	"github.com/arloliu/go-opcua/ua"
)

// handleBase is the reserved base of file handles. The first allocated handle is handleBase+1.
const handleBase uint32 = 41

// FileAccess is the state of one open file handle.
//
// The handle, mode, owning session and file are fixed at allocation. Position, size, the open
// descriptor and the released flag are guarded by the entry's mutex, so a read or write and the
// position update it causes happen as one unit.
type FileAccess struct {
	handle    uint32
	mode      OpenMode
	sessionID ua.NodeID
	data      *FileTypeData

	mu       sync.Mutex
	file     afero.File
	position uint64
	size     uint64
	released bool
}

// Handle returns the file handle.
func (fa *FileAccess) Handle() uint32 { return fa.handle }

// Mode returns the mode the handle was opened with.
func (fa *FileAccess) Mode() OpenMode { return fa.mode }

// SessionID returns the id of the session owning the handle.
func (fa *FileAccess) SessionID() ua.NodeID { return fa.sessionID }

// File returns the FileType object data the handle was opened on.
func (fa *FileAccess) File() *FileTypeData { return fa.data }

// Position returns the current position.
func (fa *FileAccess) Position() uint64 {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	return fa.position
}

// Size returns the size of the file as seen through this handle.
func (fa *FileAccess) Size() uint64 {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	return fa.size
}

// shutdown marks the entry released and closes its descriptor. It reports whether a descriptor was
// open, so the caller that removed the entry from the table balances exactly one successful Open.
func (fa *FileAccess) shutdown() (bool, error) {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	fa.released = true
	if fa.file == nil {
		return false, nil
	}

	err := fa.file.Close()
	fa.file = nil

	return true, err
}

// HandleTable holds the open file handles of an address space.
//
// It is shared by every file installed in the address space and is safe for concurrent use.
type HandleTable struct {
	logger  logger.Logger
	current atomic.Uint32
	entries *xsync.MapOf[uint32, *FileAccess]
}

// NewHandleTable creates an empty handle table. A nil logger uses the default logger.
func NewHandleTable(l logger.Logger) *HandleTable {
	if l == nil {
		l = logger.GetLogger()
	}

	t := &HandleTable{
		logger:  l,
		entries: xsync.NewMapOf[uint32, *FileAccess](),
	}
	t.current.Store(handleBase)

	return t
}

// Allocate stores a new entry owned by sessionID for the file data and returns its handle.
//
// Handles are allocated in increasing order starting after the reserved base. The new entry starts
// at position 0 and size 0 without an open descriptor.
func (t *HandleTable) Allocate(mode OpenMode, sessionID ua.NodeID, data *FileTypeData) uint32 {
	for {
		handle := t.current.Add(1)
		if handle <= handleBase {
			// wrapped around, skip the reserved range
			continue
		}

		fa := &FileAccess{
			handle:    handle,
			mode:      mode,
			sessionID: sessionID,
			data:      data,
		}
		if _, loaded := t.entries.LoadOrStore(handle, fa); !loaded {
			return handle
		}
	}
}

// Lookup returns the entry of handle if it exists and is owned by sessionID.
func (t *HandleTable) Lookup(handle uint32, sessionID ua.NodeID) (*FileAccess, bool) {
	fa, ok := t.entries.Load(handle)
	if !ok {
		t.logger.Debug("file handle not found", "handle", handle, "session", sessionID)
		return nil, false
	}

	if !fa.sessionID.Equal(sessionID) {
		t.logger.Error("invalid session id, the file handle doesn't belong to this session",
			"handle", handle, "session", sessionID)

		return nil, false
	}

	return fa, true
}

// Release removes the entry of handle. It reports whether the entry existed.
func (t *HandleTable) Release(handle uint32) bool {
	_, ok := t.entries.LoadAndDelete(handle)
	return ok
}

// ReleaseSession removes and returns every entry owned by sessionID.
func (t *HandleTable) ReleaseSession(sessionID ua.NodeID) []*FileAccess {
	var released []*FileAccess

	t.entries.Range(func(handle uint32, fa *FileAccess) bool {
		if fa.sessionID.Equal(sessionID) {
			if _, ok := t.entries.LoadAndDelete(handle); ok {
				released = append(released, fa)
			}
		}

		return true
	})

	return released
}

// Len returns the number of allocated handles.
func (t *HandleTable) Len() int {
	return t.entries.Size()
}
