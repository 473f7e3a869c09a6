package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation controls the rolling file sink
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type options struct {
	file     string
	rotation Rotation
}

// Option customizes the logger built by NewLogger
type Option func(*options)

// WithRotatingFile tees every entry into a size-rotated file.
// An empty path disables the file sink.
func WithRotatingFile(path string, rotation Rotation) Option {
	return func(o *options) {
		o.file = path
		o.rotation = rotation
	}
}

// NewLogger creates a zap logger for the given environment and level.
// "development" uses a colored console encoder, everything else JSON.
func NewLogger(environment, level string, opts ...Option) (*zap.Logger, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	atomicLevel := zap.NewAtomicLevelAt(lvl)

	var encoderCfg zapcore.EncoderConfig
	var encoder zapcore.Encoder
	if strings.EqualFold(environment, "development") {
		encoderCfg = zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoderCfg = zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), atomicLevel),
	}

	if o.file != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   o.file,
			MaxSize:    o.rotation.MaxSizeMB,
			MaxBackups: o.rotation.MaxBackups,
			MaxAge:     o.rotation.MaxAgeDays,
			Compress:   o.rotation.Compress,
		}
		// file output is always JSON, colors make no sense there
		fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(fileWriter), atomicLevel))
	}

	zapOpts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if strings.EqualFold(environment, "development") {
		zapOpts = append(zapOpts, zap.Development())
	}

	return zap.New(zapcore.NewTee(cores...), zapOpts...), nil
}
