package addrspace

import (
	"fmt"
	"sync"

	"github.com/arloliu/go-opcua/ua"
)

// Object is a node holding component variables and methods.
type Object struct {
	id         ua.NodeID
	browseName string

	mu        sync.RWMutex
	variables map[string]*Variable
	methods   map[string]MethodFunc
}

func newObject(id ua.NodeID, browseName string) *Object {
	return &Object{
		id:         id,
		browseName: browseName,
		variables:  make(map[string]*Variable),
		methods:    make(map[string]MethodFunc),
	}
}

// NodeID returns the node id of the object.
func (o *Object) NodeID() ua.NodeID { return o.id }

// BrowseName returns the browse name of the object.
func (o *Object) BrowseName() string { return o.browseName }

// AddVariable adds a component variable named name.
//
// The variable node id is a string id in the object's namespace built from the object browse name and name.
func (o *Object) AddVariable(name string, dataType ua.DataType) (*Variable, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.variables[name]; ok {
		return nil, fmt.Errorf("variable %s.%s: %w", o.browseName, name, ErrNodeExists)
	}

	v := newVariable(ua.NewStringNodeID(o.id.Namespace, o.browseName+"."+name), name, dataType)
	o.variables[name] = v

	return v, nil
}

// Variable returns the component variable named name.
func (o *Object) Variable(name string) (*Variable, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	v, ok := o.variables[name]

	return v, ok
}

// BindMethod binds fn to the method named name, replacing any previous binding.
func (o *Object) BindMethod(name string, fn MethodFunc) error {
	if fn == nil {
		return fmt.Errorf("method %s.%s: %w", o.browseName, name, ErrMethodNil)
	}

	o.mu.Lock()
	o.methods[name] = fn
	o.mu.Unlock()

	return nil
}

// IsBound reports whether the method named name is bound.
func (o *Object) IsBound(name string) bool {
	_, ok := o.Method(name)
	return ok
}

// Method returns the function bound to the method named name.
func (o *Object) Method(name string) (MethodFunc, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	fn, ok := o.methods[name]

	return fn, ok
}
