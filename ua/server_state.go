package ua

// ServerState is the value of the Server_ServerStatus_State variable.
type ServerState int32

// Server states defined by OPC UA Part 5.
const (
	ServerStateRunning ServerState = iota
	ServerStateFailed
	ServerStateNoConfiguration
	ServerStateSuspended
	ServerStateShutdown
	ServerStateTest
	ServerStateCommunicationFault
	ServerStateUnknown
)

// String returns string representation of the server state.
func (s ServerState) String() string {
	switch s {
	case ServerStateRunning:
		return "Running"
	case ServerStateFailed:
		return "Failed"
	case ServerStateNoConfiguration:
		return "NoConfiguration"
	case ServerStateSuspended:
		return "Suspended"
	case ServerStateShutdown:
		return "Shutdown"
	case ServerStateTest:
		return "Test"
	case ServerStateCommunicationFault:
		return "CommunicationFault"
	case ServerStateUnknown:
		return "Unknown"
	default:
		return "Invalid"
	}
}
