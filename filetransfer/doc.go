// Package filetransfer implements the server side of the OPC UA FileType object: remote file access
// through the Open, Close, Read, Write, GetPosition and SetPosition methods.
//
// A Manager installs FileType behavior on objects of an addrspace.AddressSpace. Every installed object is
// backed by a file on an afero.Fs, so the same code serves files from the OS filesystem, from a base path
// jail or from memory.
//
// Open returns a file handle valid only for the calling session. Handles are kept in a HandleTable shared
// by all files of the address space and are validated against the caller session on every call, so a
// handle can never be used from another session. Handles left open when a session ends are closed by the
// Manager when the address space reports the session as closed.
//
// The open count and the size of each file are mirrored into the OpenCount and Size variables of the
// object, and every change touches the variable so subscribers see it immediately.
package filetransfer
