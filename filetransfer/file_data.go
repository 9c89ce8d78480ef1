package filetransfer

import (
	"context"
	"errors"
	"math"
	"os"
	"sync"
	"sync/atomic"

	"github.com/spf13/afero"

	"github.com/arloliu/go-opcua/addrspace"
	"github.com/arloliu/go-opcua/logger"
	"github.com/arloliu/go-opcua/ua"
)

// Names of the FileType components.
const (
	VarOpenCount           = "OpenCount"
	VarSize                = "Size"
	VarMimeType            = "MimeType"
	VarMaxByteStringLength = "MaxByteStringLength"
	VarWritable            = "Writable"
	VarUserWritable        = "UserWritable"

	MethodOpen        = "Open"
	MethodClose       = "Close"
	MethodRead        = "Read"
	MethodWrite       = "Write"
	MethodGetPosition = "GetPosition"
	MethodSetPosition = "SetPosition"
)

// FileTypeData is the state shared by every handle opened on one FileType object.
type FileTypeData struct {
	object       *addrspace.Object
	logger       logger.Logger
	fs           afero.Fs
	filename     string
	maxSize      uint64
	mimeType     string
	maxChunkSize int
	refresh      RefreshFunc

	// serializes read-modify-write updates of the counters with the touches that publish them
	mu        sync.Mutex
	openCount atomic.Int32
	fileSize  atomic.Uint64

	openCountVar *addrspace.Variable
	sizeVar      *addrspace.Variable
}

func newFileTypeData(obj *addrspace.Object, filename string, cfg *fileConfig, l logger.Logger) (*FileTypeData, error) {
	data := &FileTypeData{
		object:       obj,
		logger:       l.With("file", filename),
		fs:           cfg.fs,
		filename:     filename,
		maxSize:      cfg.maxSize,
		mimeType:     cfg.mimeType,
		maxChunkSize: cfg.maxChunkSize,
		refresh:      cfg.refresh,
	}

	var err error

	data.openCountVar, err = ensureVariable(obj, VarOpenCount, ua.TypeUInt16)
	if err != nil {
		return nil, err
	}
	data.openCountVar.BindGetter(func() ua.Variant { return ua.NewUInt16Variant(data.OpenCount()) })
	data.openCountVar.SetMinimumSamplingInterval(0)

	data.sizeVar, err = ensureVariable(obj, VarSize, ua.TypeUInt64)
	if err != nil {
		return nil, err
	}
	data.sizeVar.BindGetter(func() ua.Variant { return ua.NewUInt64Variant(data.FileSize()) })
	data.sizeVar.SetMinimumSamplingInterval(0)

	if data.mimeType != "" {
		v, err := ensureVariable(obj, VarMimeType, ua.TypeString)
		if err != nil {
			return nil, err
		}
		v.BindGetter(func() ua.Variant { return ua.NewStringVariant(data.mimeType) })
	}

	v, err := ensureVariable(obj, VarMaxByteStringLength, ua.TypeUInt32)
	if err != nil {
		return nil, err
	}
	v.BindGetter(func() ua.Variant { return ua.NewUInt32Variant(uint32(data.maxChunkSize)) })

	writable := data.Writable()
	for _, name := range []string{VarWritable, VarUserWritable} {
		v, err := ensureVariable(obj, name, ua.TypeBoolean)
		if err != nil {
			return nil, err
		}
		v.BindGetter(func() ua.Variant { return ua.NewBooleanVariant(writable) })
	}

	return data, nil
}

// ensureVariable returns the component variable name of obj, adding it when missing.
func ensureVariable(obj *addrspace.Object, name string, dataType ua.DataType) (*addrspace.Variable, error) {
	if v, ok := obj.Variable(name); ok {
		return v, nil
	}

	return obj.AddVariable(name, dataType)
}

// Object returns the FileType object.
func (d *FileTypeData) Object() *addrspace.Object { return d.object }

// Filename returns the name of the backing file.
func (d *FileTypeData) Filename() string { return d.filename }

// Filesystem returns the filesystem of the backing file.
func (d *FileTypeData) Filesystem() afero.Fs { return d.fs }

// MaxSize returns the maximum allowed size of the file.
func (d *FileTypeData) MaxSize() uint64 { return d.maxSize }

// MimeType returns the MIME type of the file, empty when unknown.
func (d *FileTypeData) MimeType() string { return d.mimeType }

// MaxChunkSize returns the maximum number of bytes returned by a single Read call.
func (d *FileTypeData) MaxChunkSize() int { return d.maxChunkSize }

// Writable reports whether the file can be opened for writing.
func (d *FileTypeData) Writable() bool {
	_, readOnly := d.fs.(*afero.ReadOnlyFs)
	return !readOnly
}

// OpenCount returns the number of currently open handles of the file.
func (d *FileTypeData) OpenCount() uint16 {
	n := d.openCount.Load()
	if n > math.MaxUint16 {
		return math.MaxUint16
	}

	return uint16(n)
}

// FileSize returns the size of the file.
func (d *FileTypeData) FileSize() uint64 {
	return d.fileSize.Load()
}

func (d *FileTypeData) incOpenCount() {
	d.mu.Lock()
	d.openCount.Add(1)
	d.mu.Unlock()

	d.openCountVar.Touch()
}

func (d *FileTypeData) decOpenCount() {
	d.mu.Lock()
	if d.openCount.Load() > 0 {
		d.openCount.Add(-1)
	} else {
		d.logger.Warn("open count is already zero")
	}
	d.mu.Unlock()

	d.openCountVar.Touch()
}

func (d *FileTypeData) setFileSize(size uint64) {
	d.mu.Lock()
	d.fileSize.Store(size)
	d.mu.Unlock()

	d.sizeVar.Touch()
}

// growFileSize raises the file size to end if it is larger.
func (d *FileTypeData) growFileSize(end uint64) {
	d.mu.Lock()
	if end > d.fileSize.Load() {
		d.fileSize.Store(end)
	}
	d.mu.Unlock()

	d.sizeVar.Touch()
}

// Refresh updates the file size from the filesystem. A missing file has size 0.
//
// It should be called when the file is modified outside of the FileType methods.
func (d *FileTypeData) Refresh(_ context.Context) error {
	info, err := d.fs.Stat(d.filename)
	if err != nil {
		d.setFileSize(0)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		d.logger.Warn("cannot access file", "error", err)

		return err
	}

	d.setFileSize(uint64(info.Size()))

	return nil
}

// RefreshContent runs the content refresh hook, if any, and then refreshes the file size.
func (d *FileTypeData) RefreshContent(ctx context.Context) error {
	if d.refresh == nil {
		return nil
	}

	if err := d.refresh(ctx); err != nil {
		return err
	}

	return d.Refresh(ctx)
}

// WriteFile replaces the content of the file name on fs.
func WriteFile(fs afero.Fs, name string, content []byte) error {
	return afero.WriteFile(fs, name, content, 0o644)
}
