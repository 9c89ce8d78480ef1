package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// LogrusLogger adapts a logrus entry to the Logger interface.
type LogrusLogger struct {
	base  *logrus.Logger
	entry *logrus.Entry
}

var _ Logger = (*LogrusLogger)(nil)

// NewLogrus creates a logrus backed logger writing JSON records to w.
// A nil writer falls back to stdout.
func NewLogrus(w io.Writer, level Level) Logger {
	if w == nil {
		w = os.Stdout
	}

	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{logrus.FieldKeyTime: "ts"},
	})
	l.SetLevel(toLogrusLevel(level))

	return &LogrusLogger{base: l, entry: logrus.NewEntry(l)}
}

func (l *LogrusLogger) Debug(msg string, keysAndValues ...any) {
	l.entry.WithFields(toLogrusFields(keysAndValues)).Debug(msg)
}

func (l *LogrusLogger) Info(msg string, keysAndValues ...any) {
	l.entry.WithFields(toLogrusFields(keysAndValues)).Info(msg)
}

func (l *LogrusLogger) Warn(msg string, keysAndValues ...any) {
	l.entry.WithFields(toLogrusFields(keysAndValues)).Warn(msg)
}

func (l *LogrusLogger) Error(msg string, keysAndValues ...any) {
	l.entry.WithFields(toLogrusFields(keysAndValues)).Error(msg)
}

func (l *LogrusLogger) Fatal(msg string, keysAndValues ...any) {
	l.entry.WithFields(toLogrusFields(keysAndValues)).Fatal(msg)
}

func (l *LogrusLogger) With(keyValues ...any) Logger {
	return &LogrusLogger{base: l.base, entry: l.entry.WithFields(toLogrusFields(keyValues))}
}

func (l *LogrusLogger) Level() Level {
	switch l.base.GetLevel() { //nolint: exhaustive
	case logrus.DebugLevel, logrus.TraceLevel:
		return DebugLevel
	case logrus.InfoLevel:
		return InfoLevel
	case logrus.WarnLevel:
		return WarnLevel
	case logrus.ErrorLevel:
		return ErrorLevel
	default:
		return FatalLevel
	}
}

func (l *LogrusLogger) SetLevel(level Level) {
	l.base.SetLevel(toLogrusLevel(level))
}

func toLogrusLevel(level Level) logrus.Level {
	switch level {
	case DebugLevel:
		return logrus.DebugLevel
	case InfoLevel:
		return logrus.InfoLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	default:
		return logrus.FatalLevel
	}
}

// toLogrusFields pairs up alternating keys and values. A dangling key is stored under "!BADKEY"
// the same way log/slog does.
func toLogrusFields(keysAndValues []any) logrus.Fields {
	fields := make(logrus.Fields, len(keysAndValues)/2+1)
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 >= len(keysAndValues) {
			fields["!BADKEY"] = keysAndValues[i]
			break
		}
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		fields[key] = keysAndValues[i+1]
	}

	return fields
}
