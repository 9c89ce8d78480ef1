package filetransfer

import "errors"

var (
	// ErrInvalidOpenMode indicates that an open mode has reserved bits set or is not a supported combination.
	ErrInvalidOpenMode = errors.New("invalid open mode")

	// ErrFileAlreadyInstalled indicates that FileType behavior is already installed on the object.
	ErrFileAlreadyInstalled = errors.New("file already installed")

	// ErrAddressSpaceNil indicates that a nil address space was provided.
	ErrAddressSpaceNil = errors.New("address space is nil")

	// ErrObjectNil indicates that a nil object was provided.
	ErrObjectNil = errors.New("object is nil")

	// ErrFilenameEmpty indicates that an empty filename was provided.
	ErrFilenameEmpty = errors.New("filename is empty")
)
