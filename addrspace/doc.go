// Package addrspace provides a minimal in-memory OPC UA address space: objects with named component
// variables and bound methods.
//
// Variables are observable. A variable either stores its value or reads it through a bound getter, and
// Touch re-samples the value and notifies every registered ValueChangeHandler. This is how server side
// components mirror their internal state (open counts, file sizes) into attributes that subscribers watch.
//
// Methods are dispatched through AddressSpace.Call with the calling SessionContext. Protocol errors are
// reported as ua.StatusCode values inside a CallResult, and a panicking method is reported as
// ua.BadInternalError instead of bringing the server down.
//
// Components owning per-session resources register with OnSessionClosed, and the session layer calls
// CloseSession when a session ends.
package addrspace
