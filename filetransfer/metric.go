package filetransfer

import "sync/atomic"

// Metrics contains atomic metrics of the file transfer methods.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type Metrics struct {
	// OpenCount indicates the number of successful Open calls.
	OpenCount atomic.Uint64
	// OpenErrCount indicates the number of Open calls that failed after a handle was allocated.
	OpenErrCount atomic.Uint64
	// CloseCount indicates the number of handles closed, by Close or by session cleanup.
	CloseCount atomic.Uint64
	// SessionCleanupCount indicates the number of handles closed because their session ended.
	SessionCleanupCount atomic.Uint64

	// BytesReadCount indicates the number of bytes returned by Read calls.
	BytesReadCount atomic.Uint64
	// BytesWrittenCount indicates the number of bytes written by Write calls.
	BytesWrittenCount atomic.Uint64
	// IOErrCount indicates the number of filesystem errors.
	IOErrCount atomic.Uint64

	// OpenHandleGauge indicates the number of currently open handles.
	OpenHandleGauge atomic.Int64
}

func (m *Metrics) incOpenCount() {
	m.OpenCount.Add(1)
	m.OpenHandleGauge.Add(1)
}

func (m *Metrics) incOpenErrCount() {
	m.OpenErrCount.Add(1)
}

func (m *Metrics) incCloseCount() {
	m.CloseCount.Add(1)
	m.OpenHandleGauge.Add(-1)
}

func (m *Metrics) incSessionCleanupCount() {
	m.SessionCleanupCount.Add(1)
}

func (m *Metrics) addBytesRead(n int) {
	m.BytesReadCount.Add(uint64(n))
}

func (m *Metrics) addBytesWritten(n int) {
	m.BytesWrittenCount.Add(uint64(n))
}

func (m *Metrics) incIOErrCount() {
	m.IOErrCount.Add(1)
}
