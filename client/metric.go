package client

import (
	"sync/atomic"
	"time"
)

// KeepAliveMetrics contains atomic metrics for a keep-alive manager.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type KeepAliveMetrics struct {
	// CheckSendCount indicates the number of server state reads issued.
	CheckSendCount atomic.Uint64
	// CheckSuccessCount indicates the number of checks completed with a good status.
	CheckSuccessCount atomic.Uint64
	// CheckFailureCount indicates the number of failed checks.
	CheckFailureCount atomic.Uint64
	// CheckSkipCount indicates the number of cycles that did not issue a read.
	CheckSkipCount atomic.Uint64
	// ForcedBreakCount indicates the number of times the secure channel was forced to break.
	ForcedBreakCount atomic.Uint64
	// LastRoundTripMs indicates the round trip time of the last check in milliseconds.
	LastRoundTripMs atomic.Int64
}

func (m *KeepAliveMetrics) incCheckSendCount() {
	m.CheckSendCount.Add(1)
}

func (m *KeepAliveMetrics) incCheckSuccessCount() {
	m.CheckSuccessCount.Add(1)
}

func (m *KeepAliveMetrics) incCheckFailureCount() {
	m.CheckFailureCount.Add(1)
}

func (m *KeepAliveMetrics) incCheckSkipCount() {
	m.CheckSkipCount.Add(1)
}

func (m *KeepAliveMetrics) incForcedBreakCount() {
	m.ForcedBreakCount.Add(1)
}

func (m *KeepAliveMetrics) setLastRoundTrip(d time.Duration) {
	m.LastRoundTripMs.Store(d.Milliseconds())
}
