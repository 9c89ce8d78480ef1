package addrspace

import "github.com/arloliu/go-opcua/logger"

// Option configures an AddressSpace.
type Option interface {
	apply(*AddressSpace) error
}

type optFunc struct {
	name      string
	applyFunc func(*AddressSpace) error
}

func (o *optFunc) apply(as *AddressSpace) error { return o.applyFunc(as) }

func newOptFunc(name string, f func(*AddressSpace) error) *optFunc {
	return &optFunc{name: name, applyFunc: f}
}

// WithLogger sets the logger of the address space. A nil logger keeps the default logger.
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(as *AddressSpace) error {
		if l != nil {
			as.logger = l
		}

		return nil
	})
}
