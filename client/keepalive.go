package client

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-opcua/internal/pool"
	"github.com/arloliu/go-opcua/logger"
	"github.com/arloliu/go-opcua/ua"
)

// Session is the client session monitored by a KeepAliveManager.
type Session interface {
	// Timeout returns the session timeout negotiated with the server.
	Timeout() time.Duration
	// LastResponseReceivedTime returns the time the last response was received from the server.
	LastResponseReceivedTime() time.Time
	// IsReconnecting reports whether the session is being re-established.
	IsReconnecting() bool
	// HasBeenClosed reports whether the session has been closed.
	HasBeenClosed() bool
	// Read reads one attribute from the server.
	Read(ctx context.Context, nodeToRead ua.ReadValueID) (*ua.DataValue, error)
}

// ChannelBreaker is the secure channel carrying a session.
type ChannelBreaker interface {
	// ForceConnectionBreak terminates the underlying connection abruptly, triggering a reconnection.
	ForceConnectionBreak()
}

// KeepAliveHandler is invoked after each successful check with the last known server state and the
// number of successful checks.
type KeepAliveHandler func(state ua.ServerState, count uint64)

// FailureHandler is invoked after each failed check.
type FailureHandler func()

// KeepAliveManager keeps a session alive and detects an unresponsive server.
type KeepAliveManager struct {
	session Session
	breaker ChannelBreaker
	cfg     *KeepAliveConfig
	logger  logger.Logger

	// serializes Start and Stop
	mu       sync.Mutex
	opState  AtomicOpState
	stopChan chan struct{}
	wg       sync.WaitGroup

	checkInterval atomic.Int64
	pingTimeout   atomic.Int64

	lastKnownState        atomic.Int32
	hasKnownState         atomic.Bool
	count                 atomic.Uint64
	transactionInProgress atomic.Bool

	handlerMu         sync.RWMutex
	keepAliveHandlers []KeepAliveHandler
	failureHandlers   []FailureHandler

	metrics KeepAliveMetrics
}

// NewKeepAliveManager creates a keep-alive manager for session.
//
// breaker is the secure channel forced to break when a check fails. It may be nil when the session
// has no channel to escalate to, in which case failures are only reported to the failure handlers.
func NewKeepAliveManager(session Session, breaker ChannelBreaker, opts ...KeepAliveOption) (*KeepAliveManager, error) {
	cfg, err := NewKeepAliveConfig(opts...)
	if err != nil {
		return nil, err
	}

	return &KeepAliveManager{
		session: session,
		breaker: breaker,
		cfg:     cfg,
		logger:  cfg.logger.With("component", "keepalive"),
	}, nil
}

// Start arms the periodic check.
//
// The check interval is intervalOverride when positive, otherwise it is derived from the session
// timeout, see ComputeKeepAliveTimings. The first check runs after the ping timeout.
//
// It returns ErrSessionNil if the session is nil, ErrSessionTimeoutTooSmall if the session timeout is
// below MinSessionTimeout, and ErrKeepAliveStarted if the manager is already started.
func (m *KeepAliveManager) Start(intervalOverride time.Duration) error {
	if m.session == nil {
		return ErrSessionNil
	}

	timeout := m.session.Timeout()
	if timeout < MinSessionTimeout {
		return fmt.Errorf("%w: %v, adjust it to at least 1s", ErrSessionTimeoutTooSmall, timeout)
	}
	if timeout < warnSessionTimeout {
		m.logger.Warn("session timeout is really too small, adjust it to at least 1s", "timeout", timeout)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.opState.ToRunning() {
		return ErrKeepAliveStarted
	}

	checkInterval, pingTimeout := ComputeKeepAliveTimings(timeout, intervalOverride, m.cfg.transportTimeout)
	m.checkInterval.Store(int64(checkInterval))
	m.pingTimeout.Store(int64(pingTimeout))

	stopChan := make(chan struct{})
	m.stopChan = stopChan

	m.logger.Debug("keep-alive started", "checkInterval", checkInterval, "pingTimeout", pingTimeout)

	m.wg.Add(1)
	go m.run(stopChan, pingTimeout)

	return nil
}

// Stop disarms the periodic check. It is safe to call Stop more than once.
//
// A check in flight completes, but no further check is scheduled.
func (m *KeepAliveManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.opState.ToStopped() {
		m.logger.Debug("keep-alive already stopped")
		return
	}

	close(m.stopChan)
	m.logger.Debug("keep-alive stopped")
}

// Wait blocks until the check loop of the last Start has exited.
func (m *KeepAliveManager) Wait() {
	m.wg.Wait()
}

// IsRunning reports whether the manager is started.
func (m *KeepAliveManager) IsRunning() bool {
	return m.opState.IsRunning()
}

// CheckInterval returns the check interval computed by Start.
func (m *KeepAliveManager) CheckInterval() time.Duration {
	return time.Duration(m.checkInterval.Load())
}

// PingTimeout returns the ping timeout computed by Start.
func (m *KeepAliveManager) PingTimeout() time.Duration {
	return time.Duration(m.pingTimeout.Load())
}

// Count returns the number of successful checks.
func (m *KeepAliveManager) Count() uint64 {
	return m.count.Load()
}

// LastKnownState returns the server state read by the last successful check.
// The second value is false until a check has succeeded.
func (m *KeepAliveManager) LastKnownState() (ua.ServerState, bool) {
	if !m.hasKnownState.Load() {
		return ua.ServerStateUnknown, false
	}

	return ua.ServerState(m.lastKnownState.Load()), true
}

// Metrics returns the metrics of the manager.
func (m *KeepAliveManager) Metrics() *KeepAliveMetrics {
	return &m.metrics
}

// AddKeepAliveHandler registers a handler invoked after each successful check.
func (m *KeepAliveManager) AddKeepAliveHandler(h KeepAliveHandler) {
	if h == nil {
		return
	}

	m.handlerMu.Lock()
	m.keepAliveHandlers = append(m.keepAliveHandlers, h)
	m.handlerMu.Unlock()
}

// AddFailureHandler registers a handler invoked after each failed check.
func (m *KeepAliveManager) AddFailureHandler(h FailureHandler) {
	if h == nil {
		return
	}

	m.handlerMu.Lock()
	m.failureHandlers = append(m.failureHandlers, h)
	m.handlerMu.Unlock()
}

func (m *KeepAliveManager) run(stopChan chan struct{}, delay time.Duration) {
	defer m.wg.Done()

	for {
		if !pool.Wait(delay, stopChan) {
			return
		}

		delay = m.pingServer()

		select {
		case <-stopChan:
			return
		default:
		}
	}
}

// pingServer runs one check cycle and returns the delay until the next one.
func (m *KeepAliveManager) pingServer() time.Duration {
	checkInterval := m.CheckInterval()
	pingTimeout := m.PingTimeout()

	session := m.session
	if session.HasBeenClosed() || session.IsReconnecting() {
		m.logger.Debug("check skipped, session is closed or reconnecting")
		m.metrics.incCheckSkipCount()

		return checkInterval
	}

	elapsed := time.Since(session.LastResponseReceivedTime())
	if elapsed < pingTimeout {
		m.metrics.incCheckSkipCount()
		if m.logger.Level() == logger.DebugLevel {
			m.logger.Debug("check skipped, server contacted recently", "elapsed", elapsed, "pingTimeout", pingTimeout)
		}

		return max(time.Millisecond, pingTimeout-elapsed)
	}

	if !m.transactionInProgress.CompareAndSwap(false, true) {
		m.metrics.incCheckSkipCount()
		return checkInterval
	}
	defer m.transactionInProgress.Store(false)

	roundTrip := m.check(session)

	return max(time.Millisecond, checkInterval-roundTrip)
}

// check reads the server state and raises the keepalive or failure event. It returns the round trip time.
func (m *KeepAliveManager) check(session Session) time.Duration {
	ctx := context.Background()
	if timeout := m.cfg.checkTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	m.metrics.incCheckSendCount()
	start := time.Now()
	dv, err := session.Read(ctx, ua.ReadValueID{NodeID: ua.ServerStatusStateNodeID, AttributeID: ua.AttributeValue})
	roundTrip := time.Since(start)
	m.metrics.setLastRoundTrip(roundTrip)

	switch {
	case err != nil:
		m.logger.Warn("keep-alive check failed", "error", err)
		m.fail()

		return roundTrip
	case !dv.HasValue() || dv.Status.IsBad():
		m.logger.Warn("keep-alive check returned no valid server state", "status", statusOf(dv))
		m.fail()

		return roundTrip
	}

	if dv.Status.IsGood() {
		raw, ok := dv.Value.Int32()
		if !ok {
			m.logger.Warn("keep-alive check returned an invalid server state", "dataType", dv.Value.DataType)
			m.fail()

			return roundTrip
		}

		newState := ua.ServerState(raw)
		if prev, known := m.LastKnownState(); known && prev != newState {
			m.logger.Warn("server state has changed", "state", newState, "previous", prev)
		}
		m.lastKnownState.Store(int32(newState))
		m.hasKnownState.Store(true)
		m.count.Add(1)
		m.metrics.incCheckSuccessCount()
	}

	state, _ := m.LastKnownState()
	m.emitKeepAlive(state, m.count.Load())

	return roundTrip
}

// fail raises the failure event and forces the secure channel to break.
func (m *KeepAliveManager) fail() {
	m.metrics.incCheckFailureCount()
	m.emitFailure()

	if m.breaker == nil {
		m.logger.Warn("keep-alive has failed and no secure channel is available to break")
		return
	}

	m.logger.Warn("keep-alive has failed, considering a network outage is in place, forcing a reconnection")
	m.metrics.incForcedBreakCount()
	m.callWithRecover("ForceConnectionBreak", m.breaker.ForceConnectionBreak)
}

func (m *KeepAliveManager) emitKeepAlive(state ua.ServerState, count uint64) {
	m.handlerMu.RLock()
	handlers := m.keepAliveHandlers
	m.handlerMu.RUnlock()

	for _, h := range handlers {
		m.callWithRecover("keepalive", func() { h(state, count) })
	}
}

func (m *KeepAliveManager) emitFailure() {
	m.handlerMu.RLock()
	handlers := m.failureHandlers
	m.handlerMu.RUnlock()

	for _, h := range handlers {
		m.callWithRecover("failure", h)
	}
}

// callWithRecover calls fn with panic protection.
func (m *KeepAliveManager) callWithRecover(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("panic in keep-alive handler", "name", name, "panic", r)
		}
	}()

	fn()
}

func statusOf(dv *ua.DataValue) ua.StatusCode {
	if dv == nil {
		return ua.BadUnexpectedError
	}

	return dv.Status
}
