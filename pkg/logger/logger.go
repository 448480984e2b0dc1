// Package logger builds the logr.Logger used throughout the bridge.
// Console output goes to stderr in a human-readable format; the level can be
// raised at runtime through the --verbosity flag.
package logger

import (
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	verbosityFlagName      = "verbosity"
	verbosityFlagShortName = "v"
)

type Logger struct {
	logr.Logger
	name        string
	atomicLevel zap.AtomicLevel
	flush       func()
}

// New creates a named logger writing to stderr at Info level.
func New(name string) *Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleEncoder := zapcore.NewConsoleEncoder(encoderConfig)

	atomicLevel := zap.NewAtomicLevel()
	core := zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stderr), atomicLevel)
	zapLogger := zap.New(core)

	return &Logger{
		Logger:      zapr.NewLogger(zapLogger).WithName(name),
		name:        name,
		atomicLevel: atomicLevel,
		flush: func() {
			_ = zapLogger.Sync()
		},
	}
}

func (l *Logger) SetLevel(level zapcore.Level) {
	l.atomicLevel.SetLevel(level)
}

// Flush writes out any buffered log entries. Call before process exit.
func (l *Logger) Flush() {
	l.flush()
}

// BindVerbosityFlag registers the --verbosity/-v flag. Each occurrence lowers
// the minimum level by one notch (Info -> Debug).
func (l *Logger) BindVerbosityFlag(fs *pflag.FlagSet) {
	fs.VarP(&levelFlag{logger: l}, verbosityFlagName, verbosityFlagShortName,
		"Increase log verbosity (repeatable)")
}

type levelFlag struct {
	logger *Logger
	count  int
}

func (f *levelFlag) String() string { return "" }

func (f *levelFlag) Type() string { return "count" }

func (f *levelFlag) Set(string) error {
	f.count++
	level := zapcore.InfoLevel - zapcore.Level(f.count)
	if level < zapcore.DebugLevel {
		level = zapcore.DebugLevel
	}
	f.logger.SetLevel(level)
	return nil
}
