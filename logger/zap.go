package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger adapts a zap sugared logger to the Logger interface.
type ZapLogger struct {
	sugar *zap.SugaredLogger
	level zap.AtomicLevel
}

var _ Logger = (*ZapLogger)(nil)

// NewZap creates a zap backed logger writing JSON records to w.
// A nil writer falls back to stdout.
func NewZap(w io.Writer, level Level) Logger {
	if w == nil {
		w = os.Stdout
	}

	atom := zap.NewAtomicLevelAt(toZapLevel(level))
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), atom)
	l := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

	return &ZapLogger{sugar: l.Sugar(), level: atom}
}

// NewZapFromLogger wraps an existing zap logger. The returned logger controls level through atom,
// which must be the level the zap core was built with.
func NewZapFromLogger(l *zap.Logger, atom zap.AtomicLevel) Logger {
	return &ZapLogger{sugar: l.WithOptions(zap.AddCallerSkip(1)).Sugar(), level: atom}
}

func (z *ZapLogger) Debug(msg string, keysAndValues ...any) {
	z.sugar.Debugw(msg, keysAndValues...)
}

func (z *ZapLogger) Info(msg string, keysAndValues ...any) {
	z.sugar.Infow(msg, keysAndValues...)
}

func (z *ZapLogger) Warn(msg string, keysAndValues ...any) {
	z.sugar.Warnw(msg, keysAndValues...)
}

func (z *ZapLogger) Error(msg string, keysAndValues ...any) {
	z.sugar.Errorw(msg, keysAndValues...)
}

func (z *ZapLogger) Fatal(msg string, keysAndValues ...any) {
	z.sugar.Fatalw(msg, keysAndValues...)
}

func (z *ZapLogger) With(keyValues ...any) Logger {
	return &ZapLogger{sugar: z.sugar.With(keyValues...), level: z.level}
}

func (z *ZapLogger) Level() Level {
	switch z.level.Level() { //nolint: exhaustive
	case zapcore.DebugLevel:
		return DebugLevel
	case zapcore.InfoLevel:
		return InfoLevel
	case zapcore.WarnLevel:
		return WarnLevel
	case zapcore.ErrorLevel:
		return ErrorLevel
	default:
		return FatalLevel
	}
}

func (z *ZapLogger) SetLevel(level Level) {
	z.level.SetLevel(toZapLevel(level))
}

// Sync flushes any buffered log entries.
func (z *ZapLogger) Sync() error {
	return z.sugar.Sync()
}

func toZapLevel(level Level) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case InfoLevel:
		return zapcore.InfoLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.FatalLevel
	}
}
