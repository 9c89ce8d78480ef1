package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		rec := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		records = append(records, rec)
	}

	return records
}

func TestParseLevel(t *testing.T) {
	require := require.New(t)

	require.Equal(DebugLevel, ParseLevel("DEBUG"))
	require.Equal(InfoLevel, ParseLevel("info"))
	require.Equal(WarnLevel, ParseLevel("warning"))
	require.Equal(ErrorLevel, ParseLevel("error"))
	require.Equal(FatalLevel, ParseLevel("fatal"))
	require.Equal(InfoLevel, ParseLevel("bogus"))
}

func TestAdapters(t *testing.T) {
	t.Setenv("ENV", "production")

	factories := map[string]func(buf *bytes.Buffer, level Level) Logger{
		"slog": func(buf *bytes.Buffer, level Level) Logger { return NewSlogWithWriter(buf, level, false) },
		"zap":  func(buf *bytes.Buffer, level Level) Logger { return NewZap(buf, level) },
		"logrus": func(buf *bytes.Buffer, level Level) Logger {
			return NewLogrus(buf, level)
		},
	}

	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			var buf bytes.Buffer
			l := factory(&buf, InfoLevel)
			require.Equal(InfoLevel, l.Level())

			l.Debug("hidden", "k", 1)
			l.Info("visible", "handle", 42)
			l.With("session", "s1").Warn("child")

			records := decodeLines(t, &buf)
			require.Len(records, 2)
			require.Equal("visible", records[0]["msg"])
			require.EqualValues(42, records[0]["handle"])
			require.Equal("child", records[1]["msg"])
			require.Equal("s1", records[1]["session"])
			require.Contains(records[0], "ts")

			buf.Reset()
			l.SetLevel(DebugLevel)
			require.Equal(DebugLevel, l.Level())
			l.Debug("now visible")
			require.Len(decodeLines(t, &buf), 1)
		})
	}
}

func TestLogrusFields(t *testing.T) {
	require := require.New(t)

	fields := toLogrusFields([]any{"a", 1, 2, "b", "dangling"})
	require.Equal(1, fields["a"])
	require.Equal("b", fields["2"])
	require.Equal("dangling", fields["!BADKEY"])
}

func TestDefaultLogger(t *testing.T) {
	require := require.New(t)

	orig := GetLogger()
	defer SetLogger(orig)

	m := NewMockLogger()
	m.On("Info", "hello", []any{"k", "v"}).Once()
	SetLogger(m)
	SetLogger(nil)

	Info("hello", "k", "v")
	m.AssertExpectations(t)
	require.Same(m, GetLogger())
}
