// Package obslog provides structured logging for pouchsim using zap.
package obslog

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with pouchsim-specific helpers.
type Logger struct {
	*zap.Logger
}

var (
	// L is the global logger instance.
	L    *Logger
	once sync.Once
)

// Init initializes the global logger with the given configuration.
// Safe to call multiple times; only the first call takes effect.
func Init(debug bool) {
	once.Do(func() {
		L = New(debug)
	})
}

// New creates a new Logger instance.
func New(debug bool) *Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		logger = zap.NewNop()
	}

	return &Logger{Logger: logger}
}

// NewNop creates a no-op logger for testing.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Step logs one executed script command (spec §4.8's step executor).
func (l *Logger) Step(index int, verb string, errCount int) {
	l.Debug("step",
		zap.Int("index", index),
		zap.String("verb", verb),
		zap.Int("errors", errCount),
	)
}

// Hook logs a replace/observe hook firing (spec §4.6's registry dispatch).
func (l *Logger) Hook(kind, name string, mainOffset uint64) {
	l.Debug("hook",
		zap.String("kind", kind),
		zap.String("name", name),
		Addr(mainOffset),
	)
}

// Crash logs a process crash (spec §4.6/§7: "a crash turns the Process
// into the Crashed(report) variant").
func (l *Logger) Crash(pc uint64, err error) {
	l.Error("crash", Addr(pc), zap.Error(err))
}

// WorkerSpawned logs an executor worker starting up or being replaced
// after a dead send (spec §4.9).
func (l *Logger) WorkerSpawned(id int, replaced bool) {
	l.Info("executor worker spawned", zap.Int("worker", id), zap.Bool("replaced", replaced))
}

// WorkerPanic logs a job panicking inside a worker (caught and logged
// rather than bringing the pool down).
func (l *Logger) WorkerPanic(id int, recovered any) {
	l.Warn("executor worker job panicked", zap.Int("worker", id), zap.Any("panic", recovered))
}

// Hex formats a uint64 as hex string for logging.
func Hex(addr uint64) string {
	return "0x" + hexString(addr)
}

func hexString(v uint64) string {
	const digits = "0123456789abcdef"
	if v == 0 {
		return "0"
	}
	buf := make([]byte, 16)
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = digits[v&0xf]
		v >>= 4
	}
	return string(buf[i:])
}

// Addr creates an address field.
func Addr(addr uint64) zap.Field {
	return zap.String("addr", Hex(addr))
}
