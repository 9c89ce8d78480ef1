package ua

import "fmt"

// StatusCode is the 32-bit OPC UA result code.
//
// The two most significant bits hold the severity: 00 good, 01 uncertain, 10 bad.
type StatusCode uint32

// Status codes used by go-opcua.
const (
	Good                  StatusCode = 0x00000000
	BadUnexpectedError    StatusCode = 0x80010000
	BadInternalError      StatusCode = 0x80020000
	BadCommunicationError StatusCode = 0x80050000
	BadTimeout            StatusCode = 0x800A0000
	BadSessionClosed      StatusCode = 0x80260000
	BadNodeIDUnknown      StatusCode = 0x80340000
	BadNotReadable        StatusCode = 0x803A0000
	BadNotWritable        StatusCode = 0x803B0000
	BadOutOfRange         StatusCode = 0x803C0000
	BadNotFound           StatusCode = 0x803E0000
	BadTypeMismatch       StatusCode = 0x80740000
	BadMethodInvalid      StatusCode = 0x80750000
	BadArgumentsMissing   StatusCode = 0x80760000
	BadInvalidArgument    StatusCode = 0x80AB0000
	BadInvalidState       StatusCode = 0x80AF0000
	BadTooManyArguments   StatusCode = 0x80E50000
)

const severityMask StatusCode = 0xC0000000

var statusCodeNames = map[StatusCode]string{
	Good:                  "Good",
	BadUnexpectedError:    "BadUnexpectedError",
	BadInternalError:      "BadInternalError",
	BadCommunicationError: "BadCommunicationError",
	BadTimeout:            "BadTimeout",
	BadSessionClosed:      "BadSessionClosed",
	BadNodeIDUnknown:      "BadNodeIdUnknown",
	BadNotReadable:        "BadNotReadable",
	BadNotWritable:        "BadNotWritable",
	BadOutOfRange:         "BadOutOfRange",
	BadNotFound:           "BadNotFound",
	BadTypeMismatch:       "BadTypeMismatch",
	BadMethodInvalid:      "BadMethodInvalid",
	BadArgumentsMissing:   "BadArgumentsMissing",
	BadInvalidArgument:    "BadInvalidArgument",
	BadInvalidState:       "BadInvalidState",
	BadTooManyArguments:   "BadTooManyArguments",
}

// IsGood returns true if the severity of the status code is good.
func (s StatusCode) IsGood() bool { return s&severityMask == 0 }

// IsUncertain returns true if the severity of the status code is uncertain.
func (s StatusCode) IsUncertain() bool { return s&severityMask == 0x40000000 }

// IsBad returns true if the severity of the status code is bad.
func (s StatusCode) IsBad() bool { return s&0x80000000 != 0 }

// String returns the symbolic name of the status code, or its hex value if the code is unknown.
func (s StatusCode) String() string {
	if name, ok := statusCodeNames[s]; ok {
		return name
	}

	return fmt.Sprintf("StatusCode(0x%08X)", uint32(s))
}

// Error implements the error interface, so a status code can be wrapped and matched with errors.Is.
func (s StatusCode) Error() string {
	return s.String()
}
