package ua

import (
	"fmt"
	"strconv"
)

// IDType indicates the kind of identifier held by a NodeID.
type IDType uint8

const (
	// NumericID is a 32-bit unsigned integer identifier.
	NumericID IDType = iota
	// StringID is a string identifier.
	StringID
)

// NodeID identifies a node in an address space.
//
// The zero value is the null node id (ns=0;i=0). NodeID is comparable and can be used as map key.
type NodeID struct {
	Namespace uint16
	Type      IDType
	Numeric   uint32
	Text      string
}

// ServerStatusStateNodeID is the well-known node id of the Server_ServerStatus_State variable.
var ServerStatusStateNodeID = NewNumericNodeID(0, 2259)

// NewNumericNodeID creates a NodeID with a numeric identifier.
func NewNumericNodeID(ns uint16, id uint32) NodeID {
	return NodeID{Namespace: ns, Type: NumericID, Numeric: id}
}

// NewStringNodeID creates a NodeID with a string identifier.
func NewStringNodeID(ns uint16, id string) NodeID {
	return NodeID{Namespace: ns, Type: StringID, Text: id}
}

// IsNull returns true if the node id is the null node id.
func (n NodeID) IsNull() bool {
	switch n.Type {
	case NumericID:
		return n.Namespace == 0 && n.Numeric == 0
	case StringID:
		return n.Namespace == 0 && n.Text == ""
	default:
		return false
	}
}

// Equal returns true if both node ids refer to the same node.
func (n NodeID) Equal(other NodeID) bool {
	if n.IsNull() && other.IsNull() {
		return true
	}

	return n == other
}

// String returns the standard text notation of the node id, e.g. "ns=0;i=2259" or "ns=1;s=Demo".
func (n NodeID) String() string {
	if n.Type == StringID {
		return "ns=" + strconv.Itoa(int(n.Namespace)) + ";s=" + n.Text
	}

	return fmt.Sprintf("ns=%d;i=%d", n.Namespace, n.Numeric)
}
