package filetransfer

import (
	"fmt"
	"os"
	"strings"
)

// OpenMode is the bit mask passed to the Open method.
//
//	Field          Bit  Description
//	Read            0   The file is opened for reading.
//	Write           1   The file is opened for writing.
//	EraseExisting   2   The existing content is erased. Only valid together with Write.
//	Append          3   The initial position is the end of the file.
//	Reserved       4:7  Shall always be zero.
type OpenMode byte

const (
	OpenModeRead          OpenMode = 0x01
	OpenModeWrite         OpenMode = 0x02
	OpenModeEraseExisting OpenMode = 0x04
	OpenModeAppend        OpenMode = 0x08

	openModeReserved OpenMode = 0xF0
)

// Supported open mode combinations.
const (
	OpenModeReadWrite              = OpenModeRead | OpenModeWrite
	OpenModeWriteEraseExisting     = OpenModeWrite | OpenModeEraseExisting
	OpenModeReadWriteEraseExisting = OpenModeRead | OpenModeWrite | OpenModeEraseExisting
	OpenModeWriteAppend            = OpenModeWrite | OpenModeAppend
	OpenModeReadWriteAppend        = OpenModeRead | OpenModeWrite | OpenModeAppend
)

// ParseOpenMode validates the raw mode byte received by the Open method.
//
// It returns ErrInvalidOpenMode when reserved bits are set or the combination is not one of
// Read, Write, ReadWrite, WriteEraseExisting, ReadWriteEraseExisting, WriteAppend or ReadWriteAppend.
func ParseOpenMode(b byte) (OpenMode, error) {
	mode := OpenMode(b)
	if mode&openModeReserved != 0 {
		return 0, fmt.Errorf("%w: reserved bits set in 0x%02X", ErrInvalidOpenMode, b)
	}

	switch mode {
	case OpenModeRead, OpenModeWrite, OpenModeReadWrite,
		OpenModeWriteEraseExisting, OpenModeReadWriteEraseExisting,
		OpenModeWriteAppend, OpenModeReadWriteAppend:
		return mode, nil
	default:
		return 0, fmt.Errorf("%w: unsupported combination 0x%02X", ErrInvalidOpenMode, b)
	}
}

// CanRead reports whether the Read method is permitted.
func (m OpenMode) CanRead() bool { return m&OpenModeRead != 0 }

// CanWrite reports whether the Write method is permitted.
func (m OpenMode) CanWrite() bool { return m&OpenModeWrite != 0 }

// EraseExisting reports whether the existing content is erased on open.
func (m OpenMode) EraseExisting() bool { return m&OpenModeEraseExisting != 0 }

// Append reports whether the initial position is the end of the file.
func (m OpenMode) Append() bool { return m&OpenModeAppend != 0 }

// ModeString returns the fopen style mode string of the access pattern: "r", "w+" or "a+".
func (m OpenMode) ModeString() string {
	switch {
	case m == OpenModeRead:
		return "r"
	case m.Append():
		return "a+"
	default:
		return "w+"
	}
}

// osFlags returns the flags used to open the backing file.
//
// Append modes don't use os.O_APPEND: writes are positional, and the initial position is set to the
// end of the file at open time instead.
func (m OpenMode) osFlags() int {
	switch {
	case m == OpenModeRead:
		return os.O_RDONLY
	case m.Append():
		return os.O_RDWR | os.O_CREATE
	default:
		return os.O_RDWR | os.O_CREATE | os.O_TRUNC
	}
}

func (m OpenMode) String() string {
	if m == 0 {
		return "None"
	}

	names := make([]string, 0, 4)
	if m.CanRead() {
		names = append(names, "Read")
	}
	if m.CanWrite() {
		names = append(names, "Write")
	}
	if m.EraseExisting() {
		names = append(names, "EraseExisting")
	}
	if m.Append() {
		names = append(names, "Append")
	}
	if m&openModeReserved != 0 {
		names = append(names, fmt.Sprintf("Reserved(0x%02X)", byte(m&openModeReserved)))
	}

	return strings.Join(names, "|")
}
