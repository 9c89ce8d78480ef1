package addrspace

import "errors"

var (
	// ErrNodeExists indicates that a node with the same id or browse name already exists.
	ErrNodeExists = errors.New("node already exists")

	// ErrMethodNil indicates that a nil method function was provided.
	ErrMethodNil = errors.New("method function is nil")

	// ErrGetterBound indicates that the value of a variable with a bound getter cannot be set directly.
	ErrGetterBound = errors.New("variable value is provided by a getter")

	// ErrTypeMismatch indicates that a value does not match the data type of the variable.
	ErrTypeMismatch = errors.New("value data type does not match variable data type")
)
