package logging

import (
	"os"

	"github.com/1broseidon/sqlai/common"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	SetLevel(level common.LogLevel)
	// With returns a child logger that adds the given key/value pairs to every entry.
	// Children share the parent's level.
	With(keysAndValues ...interface{}) Logger
}

type zapLogger struct {
	sugar *zap.SugaredLogger
	level zap.AtomicLevel
}

// NewDefaultLogger writes JSON entries to stderr. It starts disabled so the
// library stays silent until a host opts in with SetLevel.
func NewDefaultLogger() Logger {
	level := zap.NewAtomicLevelAt(toZapLevel(common.DisabledLevel))
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.Lock(os.Stderr), level)
	return &zapLogger{sugar: zap.New(core).Sugar(), level: level}
}

// NewZapLogger adapts a host-owned zap logger. Entries pass through the
// returned logger's own level and then the host core's level.
func NewZapLogger(base *zap.Logger, level common.LogLevel) Logger {
	atom := zap.NewAtomicLevelAt(toZapLevel(level))
	core := &levelCore{Core: base.Core(), level: atom}
	return &zapLogger{sugar: zap.New(core).Sugar(), level: atom}
}

// NewNopLogger discards everything.
func NewNopLogger() Logger {
	return &zapLogger{sugar: zap.NewNop().Sugar(), level: zap.NewAtomicLevelAt(toZapLevel(common.DisabledLevel))}
}

func (l *zapLogger) Debug(args ...interface{}) { l.sugar.Debug(args...) }
func (l *zapLogger) Debugf(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}
func (l *zapLogger) Info(args ...interface{}) { l.sugar.Info(args...) }
func (l *zapLogger) Infof(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}
func (l *zapLogger) Warn(args ...interface{}) { l.sugar.Warn(args...) }
func (l *zapLogger) Warnf(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}
func (l *zapLogger) Error(args ...interface{}) { l.sugar.Error(args...) }
func (l *zapLogger) Errorf(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

func (l *zapLogger) SetLevel(level common.LogLevel) {
	l.level.SetLevel(toZapLevel(level))
}

func (l *zapLogger) With(keysAndValues ...interface{}) Logger {
	return &zapLogger{sugar: l.sugar.With(keysAndValues...), level: l.level}
}

func toZapLevel(level common.LogLevel) zapcore.Level {
	switch level {
	case common.DebugLevel:
		return zapcore.DebugLevel
	case common.InfoLevel:
		return zapcore.InfoLevel
	case common.WarnLevel:
		return zapcore.WarnLevel
	case common.ErrorLevel:
		return zapcore.ErrorLevel
	default:
		// Above fatal: nothing is enabled.
		return zapcore.FatalLevel + 1
	}
}

// levelCore gates an existing core with an additional atomic level.
type levelCore struct {
	zapcore.Core
	level zap.AtomicLevel
}

func (c *levelCore) Enabled(lvl zapcore.Level) bool {
	return c.level.Enabled(lvl) && c.Core.Enabled(lvl)
}

func (c *levelCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelCore{Core: c.Core.With(fields), level: c.level}
}

func (c *levelCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}
