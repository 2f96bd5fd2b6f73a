package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Production emits JSON with ISO8601
// timestamps, anything else a coloured console format. When sink is non-nil
// every entry is additionally encoded as JSON into it.
func New(env string, sink io.Writer) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if sink == nil {
		return cfg.Build()
	}

	level := zap.NewAtomicLevelAt(cfg.Level.Level())

	var consoleEncoder zapcore.Encoder
	if cfg.Encoding == "json" {
		consoleEncoder = zapcore.NewJSONEncoder(cfg.EncoderConfig)
	} else {
		consoleEncoder = zapcore.NewConsoleEncoder(cfg.EncoderConfig)
	}

	sinkEncoderCfg := cfg.EncoderConfig
	sinkEncoderCfg.EncodeLevel = zapcore.LowercaseLevelEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), level),
		zapcore.NewCore(zapcore.NewJSONEncoder(sinkEncoderCfg), zapcore.AddSync(sink), level),
	)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// MustNew is New that exits the process on failure.
func MustNew(env string, sink io.Writer) *zap.Logger {
	log, err := New(env, sink)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	return log
}
