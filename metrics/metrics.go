// Package metrics exposes the atomic metrics of go-opcua components as Prometheus collectors.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arloliu/go-opcua/client"
	"github.com/arloliu/go-opcua/filetransfer"
)

const namespace = "opcua"

type counterDef struct {
	name string
	help string
	fn   func() float64
}

// RegisterKeepAlive registers the metrics of a keep-alive manager, labeled with session.
func RegisterKeepAlive(reg prometheus.Registerer, session string, m *client.KeepAliveMetrics) error {
	labels := prometheus.Labels{"session": session}

	counters := []counterDef{
		{"check_send_total", "Total number of server state reads issued", u64(&m.CheckSendCount)},
		{"check_success_total", "Total number of checks completed with a good status", u64(&m.CheckSuccessCount)},
		{"check_failure_total", "Total number of failed checks", u64(&m.CheckFailureCount)},
		{"check_skip_total", "Total number of check cycles that did not issue a read", u64(&m.CheckSkipCount)},
		{"forced_break_total", "Total number of secure channels forced to break", u64(&m.ForcedBreakCount)},
	}

	errs := registerCounters(reg, "keepalive", labels, counters)

	errs = append(errs, reg.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "keepalive",
			Name:        "last_round_trip_seconds",
			Help:        "Round trip time of the last check in seconds",
			ConstLabels: labels,
		},
		func() float64 { return float64(m.LastRoundTripMs.Load()) / 1000 },
	)))

	return errors.Join(errs...)
}

// RegisterFileTransfer registers the metrics of a file transfer manager.
func RegisterFileTransfer(reg prometheus.Registerer, m *filetransfer.Metrics) error {
	counters := []counterDef{
		{"open_total", "Total number of successful Open calls", u64(&m.OpenCount)},
		{"open_errors_total", "Total number of failed Open calls", u64(&m.OpenErrCount)},
		{"close_total", "Total number of closed file handles", u64(&m.CloseCount)},
		{"session_cleanup_total", "Total number of file handles closed because their session ended", u64(&m.SessionCleanupCount)},
		{"read_bytes_total", "Total bytes returned by Read calls", u64(&m.BytesReadCount)},
		{"written_bytes_total", "Total bytes written by Write calls", u64(&m.BytesWrittenCount)},
		{"io_errors_total", "Total number of filesystem errors", u64(&m.IOErrCount)},
	}

	errs := registerCounters(reg, "filetransfer", nil, counters)

	errs = append(errs, reg.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "filetransfer",
			Name:      "open_handles",
			Help:      "Number of currently open file handles",
		},
		func() float64 { return float64(m.OpenHandleGauge.Load()) },
	)))

	return errors.Join(errs...)
}

// Handler returns an HTTP handler serving the metrics gathered by reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func registerCounters(reg prometheus.Registerer, subsystem string, labels prometheus.Labels, defs []counterDef) []error {
	errs := make([]error, 0, len(defs))
	for _, def := range defs {
		errs = append(errs, reg.Register(prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Subsystem:   subsystem,
				Name:        def.name,
				Help:        def.help,
				ConstLabels: labels,
			},
			def.fn,
		)))
	}

	return errs
}

type uint64Loader interface {
	Load() uint64
}

func u64(v uint64Loader) func() float64 {
	return func() float64 { return float64(v.Load()) }
}
