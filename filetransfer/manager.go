package filetransfer

import (
	"context"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-opcua/addrspace"
	"github.com/arloliu/go-opcua/logger"
	"github.com/arloliu/go-opcua/ua"
)

// ManagerOption configures a Manager.
type ManagerOption interface {
	apply(*Manager) error
}

type managerOptFunc struct {
	name      string
	applyFunc func(*Manager) error
}

func (o *managerOptFunc) apply(m *Manager) error { return o.applyFunc(m) }

func newManagerOptFunc(name string, f func(*Manager) error) *managerOptFunc {
	return &managerOptFunc{name: name, applyFunc: f}
}

// WithLogger sets the logger of the manager. Defaults to the logger of the address space.
func WithLogger(l logger.Logger) ManagerOption {
	return newManagerOptFunc("WithLogger", func(m *Manager) error {
		if l != nil {
			m.logger = l
		}

		return nil
	})
}

// WithHandleTable sets the handle table of the manager. Defaults to a new table.
func WithHandleTable(t *HandleTable) ManagerOption {
	return newManagerOptFunc("WithHandleTable", func(m *Manager) error {
		if t != nil {
			m.table = t
		}

		return nil
	})
}

// Manager installs FileType behavior on objects of an address space and owns their file handles.
type Manager struct {
	as      *addrspace.AddressSpace
	logger  logger.Logger
	table   *HandleTable
	files   *xsync.MapOf[ua.NodeID, *FileTypeData]
	metrics Metrics
}

// NewManager creates a manager for the address space as.
//
// The manager registers itself for session close notifications and closes the handles a session
// leaves open when the session ends.
func NewManager(as *addrspace.AddressSpace, opts ...ManagerOption) (*Manager, error) {
	if as == nil {
		return nil, ErrAddressSpaceNil
	}

	m := &Manager{
		as:     as,
		logger: as.Logger(),
		files:  xsync.NewMapOf[ua.NodeID, *FileTypeData](),
	}

	for _, opt := range opts {
		if err := opt.apply(m); err != nil {
			return nil, err
		}
	}

	if m.table == nil {
		m.table = NewHandleTable(m.logger)
	}

	as.OnSessionClosed(m.closeSession)

	return m, nil
}

// HandleTable returns the handle table of the manager.
func (m *Manager) HandleTable() *HandleTable { return m.table }

// Metrics returns the metrics of the manager.
func (m *Manager) Metrics() *Metrics { return &m.metrics }

// File returns the data of the file installed on the object with node id id.
func (m *Manager) File(id ua.NodeID) (*FileTypeData, bool) {
	return m.files.Load(id)
}

// InstallFile binds the FileType methods of obj to the file filename.
//
// It adds or binds the OpenCount, Size, MaxByteStringLength, Writable and UserWritable variables,
// and MimeType when a MIME type is configured. Installing on the same object twice returns
// ErrFileAlreadyInstalled.
func (m *Manager) InstallFile(obj *addrspace.Object, filename string, opts ...FileOption) (*FileTypeData, error) {
	if obj == nil {
		return nil, ErrObjectNil
	}
	if filename == "" {
		return nil, ErrFilenameEmpty
	}

	cfg := defaultFileConfig()
	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	if _, ok := m.files.Load(obj.NodeID()); ok {
		m.logger.Error("file already installed", "object", obj.NodeID(), "browseName", obj.BrowseName())
		return nil, fmt.Errorf("object %s: %w", obj.NodeID(), ErrFileAlreadyInstalled)
	}

	data, err := newFileTypeData(obj, filename, cfg, m.logger)
	if err != nil {
		return nil, err
	}

	if _, loaded := m.files.LoadOrStore(obj.NodeID(), data); loaded {
		return nil, fmt.Errorf("object %s: %w", obj.NodeID(), ErrFileAlreadyInstalled)
	}

	methods := map[string]addrspace.MethodFunc{
		MethodOpen:        m.openMethod(data),
		MethodClose:       m.closeMethod(data),
		MethodRead:        m.readMethod(data),
		MethodWrite:       m.writeMethod(data),
		MethodGetPosition: m.getPositionMethod(data),
		MethodSetPosition: m.setPositionMethod(data),
	}
	for name, fn := range methods {
		if err := obj.BindMethod(name, fn); err != nil {
			m.files.Delete(obj.NodeID())
			return nil, err
		}
	}

	_ = data.Refresh(context.Background())

	m.logger.Info("file installed", "object", obj.NodeID(), "file", filename, "size", data.FileSize())

	return data, nil
}

// closeSession closes and releases every handle owned by sessionID.
func (m *Manager) closeSession(sessionID ua.NodeID) {
	released := m.table.ReleaseSession(sessionID)
	for _, fa := range released {
		wasOpen, err := fa.shutdown()
		if err != nil {
			m.metrics.incIOErrCount()
			m.logger.Warn("failed to close file on session close", "handle", fa.handle, "error", err)
		}

		if wasOpen {
			fa.data.decOpenCount()
			m.metrics.incCloseCount()
		}
		m.metrics.incSessionCleanupCount()
	}

	if len(released) > 0 {
		m.logger.Info("released file handles of closed session", "session", sessionID, "count", len(released))
	}
}
