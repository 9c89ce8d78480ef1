package client

import (
	"errors"
	"time"

	"github.com/arloliu/go-opcua/logger"
)

const (
	// DefaultTransportTimeout is the default timeout of the secure channel transport.
	DefaultTransportTimeout = 60 * time.Second

	// MinSessionTimeout is the smallest session timeout accepted by Start.
	MinSessionTimeout = 100 * time.Millisecond
	// warnSessionTimeout is the session timeout below which Start logs a warning.
	warnSessionTimeout = 600 * time.Millisecond

	maxCheckInterval = 20 * time.Second
	minPingTimeout   = 50 * time.Millisecond
	maxPingTimeout   = 20 * time.Second
)

// KeepAliveConfig represents the configuration of a KeepAliveManager.
type KeepAliveConfig struct {
	// transportTimeout caps the check interval. It should be between 1 second and 10 minutes.
	// Defaults to 60 seconds.
	transportTimeout time.Duration

	// checkTimeout bounds each server state read. It should be between 0 and 10 minutes, 0 disables it.
	// An expired read counts as a failed check.
	// Defaults to 0.
	checkTimeout time.Duration

	// logger provides a logger instance for logging keep-alive events and errors.
	logger logger.Logger
}

// NewKeepAliveConfig creates a keep-alive configuration with default values and applies opts.
func NewKeepAliveConfig(opts ...KeepAliveOption) (*KeepAliveConfig, error) {
	cfg := &KeepAliveConfig{
		transportTimeout: DefaultTransportTimeout,
		logger:           logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

func (cfg *KeepAliveConfig) TransportTimeout() time.Duration { return cfg.transportTimeout }

func (cfg *KeepAliveConfig) CheckTimeout() time.Duration { return cfg.checkTimeout }

func (cfg *KeepAliveConfig) Logger() logger.Logger { return cfg.logger }

// KeepAliveOption configures a KeepAliveManager.
type KeepAliveOption interface {
	apply(*KeepAliveConfig) error
}

type keepAliveOptFunc struct {
	name      string
	applyFunc func(*KeepAliveConfig) error
}

func (o *keepAliveOptFunc) apply(cfg *KeepAliveConfig) error { return o.applyFunc(cfg) }

func newKeepAliveOptFunc(name string, f func(*KeepAliveConfig) error) *keepAliveOptFunc {
	return &keepAliveOptFunc{name: name, applyFunc: f}
}

// WithTransportTimeout sets the transport timeout used to cap the check interval.
func WithTransportTimeout(val time.Duration) KeepAliveOption {
	return newKeepAliveOptFunc("WithTransportTimeout", func(cfg *KeepAliveConfig) error {
		if cfg == nil {
			return ErrKeepAliveConfigNil
		}

		if val < time.Second || val > 10*time.Minute {
			return errors.New("transport timeout out of range [1s, 10m]")
		}
		cfg.transportTimeout = val

		return nil
	})
}

// WithCheckTimeout bounds each server state read. 0 disables the bound.
func WithCheckTimeout(val time.Duration) KeepAliveOption {
	return newKeepAliveOptFunc("WithCheckTimeout", func(cfg *KeepAliveConfig) error {
		if cfg == nil {
			return ErrKeepAliveConfigNil
		}

		if val < 0 || val > 10*time.Minute {
			return errors.New("check timeout out of range [0, 10m]")
		}
		cfg.checkTimeout = val

		return nil
	})
}

// WithKeepAliveLogger sets the logger. A nil logger keeps the default logger.
func WithKeepAliveLogger(l logger.Logger) KeepAliveOption {
	return newKeepAliveOptFunc("WithKeepAliveLogger", func(cfg *KeepAliveConfig) error {
		if cfg == nil {
			return ErrKeepAliveConfigNil
		}

		if l != nil {
			cfg.logger = l
		}

		return nil
	})
}

// ComputeKeepAliveTimings returns the check interval and ping timeout for a session timeout.
//
// The check interval is override when positive, otherwise two thirds of the session timeout capped at
// 20 seconds and at the transport timeout. The ping timeout is half of the check interval clamped to
// [50ms, 20s]. Both are truncated to milliseconds.
func ComputeKeepAliveTimings(sessionTimeout, override, transportTimeout time.Duration) (checkInterval, pingTimeout time.Duration) {
	if override > 0 {
		checkInterval = override
	} else {
		checkInterval = min(sessionTimeout*2/3, maxCheckInterval).Truncate(time.Millisecond)
		if transportTimeout > 0 {
			checkInterval = min(checkInterval, transportTimeout)
		}
	}

	pingTimeout = min(max(checkInterval/2, minPingTimeout), maxPingTimeout).Truncate(time.Millisecond)

	return checkInterval, pingTimeout
}
