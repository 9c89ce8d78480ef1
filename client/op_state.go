package client

import "sync/atomic"

// OpState is the operational state of a KeepAliveManager.
type OpState uint32

const (
	StoppedState OpState = iota
	RunningState
)

// AtomicOpState is an OpState updated with compare-and-swap transitions.
type AtomicOpState struct {
	state atomic.Uint32
}

func (st *AtomicOpState) String() string {
	switch st.Get() {
	case StoppedState:
		return "Stopped"
	case RunningState:
		return "Running"
	default:
		return "Unknown"
	}
}

// Get returns the current state.
func (st *AtomicOpState) Get() OpState {
	return OpState(st.state.Load())
}

func (st *AtomicOpState) IsStopped() bool {
	return st.Get() == StoppedState
}

func (st *AtomicOpState) IsRunning() bool {
	return st.Get() == RunningState
}

// ToRunning moves a stopped state to running. It returns false if the state was not stopped.
func (st *AtomicOpState) ToRunning() bool {
	return st.state.CompareAndSwap(uint32(StoppedState), uint32(RunningState))
}

// ToStopped moves a running state to stopped. It returns false if the state was not running.
func (st *AtomicOpState) ToStopped() bool {
	return st.state.CompareAndSwap(uint32(RunningState), uint32(StoppedState))
}
