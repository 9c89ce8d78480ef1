package addrspace

import (
	"context"
	"fmt"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-opcua/logger"
	"github.com/arloliu/go-opcua/ua"
)

// SessionContext describes the session on whose behalf a method is invoked.
type SessionContext struct {
	// SessionID identifies the calling session.
	SessionID ua.NodeID
	// MaxMessageSize is the maximum message size negotiated on the session's transport, 0 when unknown.
	MaxMessageSize int
	// ObjectID is the object the method was called on. It is set by Call.
	ObjectID ua.NodeID
}

// CallResult is the outcome of a method call.
type CallResult struct {
	Status  ua.StatusCode
	Outputs []ua.Variant
}

// NewCallResult creates a CallResult with the given status and output arguments.
func NewCallResult(status ua.StatusCode, outputs ...ua.Variant) CallResult {
	return CallResult{Status: status, Outputs: outputs}
}

// MethodFunc implements a method bound to an object.
type MethodFunc func(ctx context.Context, sc *SessionContext, args []ua.Variant) CallResult

// SessionCloseHandler is invoked when a session ends.
type SessionCloseHandler func(sessionID ua.NodeID)

// AddressSpace owns the objects exposed by a server.
type AddressSpace struct {
	logger  logger.Logger
	objects *xsync.MapOf[ua.NodeID, *Object]

	mu            sync.RWMutex
	closeHandlers []SessionCloseHandler
}

// New creates an empty address space.
func New(opts ...Option) (*AddressSpace, error) {
	as := &AddressSpace{
		logger:  logger.GetLogger(),
		objects: xsync.NewMapOf[ua.NodeID, *Object](),
	}

	for _, opt := range opts {
		if err := opt.apply(as); err != nil {
			return nil, err
		}
	}

	return as, nil
}

// Logger returns the logger of the address space.
func (as *AddressSpace) Logger() logger.Logger {
	return as.logger
}

// AddObject adds an object with the given node id and browse name.
//
// It returns ErrNodeExists if an object with the same node id exists.
func (as *AddressSpace) AddObject(id ua.NodeID, browseName string) (*Object, error) {
	obj := newObject(id, browseName)
	if _, loaded := as.objects.LoadOrStore(id, obj); loaded {
		return nil, fmt.Errorf("object %s: %w", id, ErrNodeExists)
	}

	return obj, nil
}

// FindObject returns the object with the given node id.
func (as *AddressSpace) FindObject(id ua.NodeID) (*Object, bool) {
	return as.objects.Load(id)
}

// Call invokes the method bound to the named method of the object objectID.
//
// An unknown object results in ua.BadNodeIDUnknown, an unbound method in ua.BadMethodInvalid,
// a missing session context in ua.BadSessionClosed, and a panic in the method in ua.BadInternalError.
func (as *AddressSpace) Call(
	ctx context.Context,
	sc *SessionContext,
	objectID ua.NodeID,
	method string,
	args []ua.Variant,
) (result CallResult) {
	if sc == nil {
		return NewCallResult(ua.BadSessionClosed)
	}

	obj, ok := as.objects.Load(objectID)
	if !ok {
		return NewCallResult(ua.BadNodeIDUnknown)
	}

	fn, ok := obj.Method(method)
	if !ok {
		return NewCallResult(ua.BadMethodInvalid)
	}

	sc.ObjectID = objectID

	defer func() {
		if r := recover(); r != nil {
			as.logger.Error("panic in method", "object", objectID, "method", method, "panic", r)
			result = NewCallResult(ua.BadInternalError)
		}
	}()

	return fn(ctx, sc, args)
}

// OnSessionClosed registers handlers invoked by CloseSession.
func (as *AddressSpace) OnSessionClosed(handlers ...SessionCloseHandler) {
	as.mu.Lock()
	defer as.mu.Unlock()

	for _, h := range handlers {
		if h != nil {
			as.closeHandlers = append(as.closeHandlers, h)
		}
	}
}

// CloseSession notifies the registered handlers, in registration order, that a session has ended.
func (as *AddressSpace) CloseSession(sessionID ua.NodeID) {
	as.mu.RLock()
	handlers := make([]SessionCloseHandler, len(as.closeHandlers))
	copy(handlers, as.closeHandlers)
	as.mu.RUnlock()

	for _, h := range handlers {
		as.callWithRecover(sessionID, h)
	}
}

func (as *AddressSpace) callWithRecover(sessionID ua.NodeID, h SessionCloseHandler) {
	defer func() {
		if r := recover(); r != nil {
			as.logger.Error("panic in session close handler", "session", sessionID, "panic", r)
		}
	}()

	h(sessionID)
}
