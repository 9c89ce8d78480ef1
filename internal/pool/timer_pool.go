// Package pool provides pooled timers for the periodic loops of go-opcua.
//
// The module requires Go 1.23 or later, where Stop and Reset discard an expiration that was not
// received yet, so a pooled timer never carries a stale tick into its next use.
package pool

import (
	"sync"
	"time"
)

var timerPool = sync.Pool{
	New: func() any {
		t := time.NewTimer(time.Hour)
		t.Stop()

		return t
	},
}

// acquireTimer returns a stopped pooled timer armed for d.
func acquireTimer(d time.Duration) *time.Timer {
	t, _ := timerPool.Get().(*time.Timer)
	t.Reset(d)

	return t
}

// releaseTimer stops t and returns it to the pool. t must not be used afterwards.
func releaseTimer(t *time.Timer) {
	t.Stop()
	timerPool.Put(t)
}

// Wait blocks for d using a pooled timer. It returns false if stop is closed first.
//
// A non-positive d still yields to stop: a closed stop channel always wins.
func Wait(d time.Duration, stop <-chan struct{}) bool {
	select {
	case <-stop:
		return false
	default:
	}

	timer := acquireTimer(d)
	defer releaseTimer(timer)

	select {
	case <-stop:
		return false
	case <-timer.C:
		return true
	}
}
