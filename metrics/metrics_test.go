package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-opcua/client"
	"github.com/arloliu/go-opcua/filetransfer"
)

func TestRegisterKeepAlive(t *testing.T) {
	require := require.New(t)

	reg := prometheus.NewRegistry()
	m := &client.KeepAliveMetrics{}
	require.NoError(RegisterKeepAlive(reg, "s1", m))

	m.CheckSendCount.Add(3)
	m.CheckFailureCount.Add(1)
	m.LastRoundTripMs.Store(250)

	expected := `
# HELP opcua_keepalive_check_send_total Total number of server state reads issued
# TYPE opcua_keepalive_check_send_total counter
opcua_keepalive_check_send_total{session="s1"} 3
# HELP opcua_keepalive_check_failure_total Total number of failed checks
# TYPE opcua_keepalive_check_failure_total counter
opcua_keepalive_check_failure_total{session="s1"} 1
# HELP opcua_keepalive_last_round_trip_seconds Round trip time of the last check in seconds
# TYPE opcua_keepalive_last_round_trip_seconds gauge
opcua_keepalive_last_round_trip_seconds{session="s1"} 0.25
`
	require.NoError(testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"opcua_keepalive_check_send_total",
		"opcua_keepalive_check_failure_total",
		"opcua_keepalive_last_round_trip_seconds",
	))

	// a second session registers its own series
	require.NoError(RegisterKeepAlive(reg, "s2", &client.KeepAliveMetrics{}))
	// the same session twice collides
	require.Error(RegisterKeepAlive(reg, "s1", m))
}

func TestRegisterFileTransfer(t *testing.T) {
	require := require.New(t)

	reg := prometheus.NewRegistry()
	m := &filetransfer.Metrics{}
	require.NoError(RegisterFileTransfer(reg, m))

	m.BytesReadCount.Add(1024)
	m.OpenHandleGauge.Add(2)

	count, err := testutil.GatherAndCount(reg)
	require.NoError(err)
	require.Equal(8, count)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(err)
	require.Contains(string(body), "opcua_filetransfer_read_bytes_total 1024")
	require.Contains(string(body), "opcua_filetransfer_open_handles 2")
}
