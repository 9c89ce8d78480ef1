package client

import "errors"

var (
	// ErrSessionNil indicates that a nil Session was provided.
	ErrSessionNil = errors.New("session is nil")

	// ErrSessionTimeoutTooSmall indicates that the session timeout is below the 100ms minimum.
	ErrSessionTimeoutTooSmall = errors.New("session timeout is too small")

	// ErrKeepAliveStarted indicates that the keep-alive manager is already started.
	ErrKeepAliveStarted = errors.New("keep-alive manager already started")

	// ErrKeepAliveConfigNil indicates that a nil KeepAliveConfig was provided.
	ErrKeepAliveConfigNil = errors.New("keep-alive config is nil")
)
