// Package ua provides the OPC Unified Architecture value types shared by the client and server
// packages of go-opcua.
//
// The package does not implement the binary wire codec. It defines the typed values that cross
// the protocol boundary and that the higher level packages exchange with each other:
//   - StatusCode: the 32-bit result code returned by every service and method call.
//   - NodeID: the identifier of a node in an address space, also used as session identity.
//   - Variant and DataValue: typed values with an explicit DataType.
//   - ServerState: the value of the Server_ServerStatus_State variable used for liveness checks.
//
// 64-bit unsigned integers are kept as a single uint64 internally. UInt64ToWords and
// UInt64FromWords convert to and from the high/low word pair used at the protocol boundary.
package ua
