package addrspace

import (
	"fmt"
	"sync"
	"time"

	"github.com/arloliu/go-opcua/ua"
)

// ValueChangeHandler is invoked with the new value each time a variable changes or is touched.
type ValueChangeHandler func(nodeID ua.NodeID, value ua.DataValue)

// Variable is an observable variable node.
type Variable struct {
	nodeID     ua.NodeID
	browseName string
	dataType   ua.DataType

	mu                  sync.RWMutex
	getter              func() ua.Variant
	value               ua.DataValue
	minSamplingInterval time.Duration
	handlers            []ValueChangeHandler
}

func newVariable(nodeID ua.NodeID, browseName string, dataType ua.DataType) *Variable {
	return &Variable{
		nodeID:     nodeID,
		browseName: browseName,
		dataType:   dataType,
		value:      ua.DataValue{Status: ua.Good},
	}
}

// NodeID returns the node id of the variable.
func (v *Variable) NodeID() ua.NodeID { return v.nodeID }

// BrowseName returns the browse name of the variable.
func (v *Variable) BrowseName() string { return v.browseName }

// DataType returns the data type of the variable.
func (v *Variable) DataType() ua.DataType { return v.dataType }

// BindGetter makes the variable read its value through getter.
func (v *Variable) BindGetter(getter func() ua.Variant) {
	v.mu.Lock()
	v.getter = getter
	v.mu.Unlock()
}

// SetValue stores val and notifies the change handlers.
//
// It returns ErrGetterBound when a getter is bound and ErrTypeMismatch when val has another data type.
func (v *Variable) SetValue(val ua.Variant) error {
	v.mu.Lock()
	if v.getter != nil {
		v.mu.Unlock()
		return fmt.Errorf("variable %s: %w", v.nodeID, ErrGetterBound)
	}
	if val.DataType != v.dataType {
		v.mu.Unlock()
		return fmt.Errorf("variable %s: %w", v.nodeID, ErrTypeMismatch)
	}

	v.value = ua.DataValue{Value: &val, Status: ua.Good, SourceTimestamp: time.Now()}
	dv := v.value
	handlers := v.handlers
	v.mu.Unlock()

	notify(handlers, v.nodeID, dv)

	return nil
}

// Value returns the current value, sampling the getter when one is bound.
func (v *Variable) Value() ua.DataValue {
	v.mu.RLock()
	getter := v.getter
	dv := v.value
	v.mu.RUnlock()

	if getter == nil {
		return dv
	}

	val := getter()

	return ua.DataValue{Value: &val, Status: ua.Good, SourceTimestamp: time.Now()}
}

// Touch re-samples the value and notifies the change handlers, marking the value as changed.
func (v *Variable) Touch() {
	dv := v.Value()

	v.mu.Lock()
	if dv.Value != nil {
		v.value = dv
	} else {
		v.value.SourceTimestamp = time.Now()
		dv = v.value
	}
	handlers := v.handlers
	v.mu.Unlock()

	notify(handlers, v.nodeID, dv)
}

// AddValueChangeHandler registers a handler invoked on every change.
func (v *Variable) AddValueChangeHandler(h ValueChangeHandler) {
	if h == nil {
		return
	}

	v.mu.Lock()
	v.handlers = append(v.handlers[:len(v.handlers):len(v.handlers)], h)
	v.mu.Unlock()
}

// SetMinimumSamplingInterval sets the minimum sampling interval of the variable.
// An interval of 0 means the value changes are reported as soon as they happen.
func (v *Variable) SetMinimumSamplingInterval(d time.Duration) {
	v.mu.Lock()
	v.minSamplingInterval = d
	v.mu.Unlock()
}

// MinimumSamplingInterval returns the minimum sampling interval of the variable.
func (v *Variable) MinimumSamplingInterval() time.Duration {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.minSamplingInterval
}

func notify(handlers []ValueChangeHandler, nodeID ua.NodeID, dv ua.DataValue) {
	for _, h := range handlers {
		h(nodeID, dv)
	}
}
