package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Log struct {
	LogLevel zapcore.Level `yaml:"level" envconfig:"LOG_LEVEL"`
	Sink     string        `yaml:"sink" envconfig:"LOG_SINK"`
	Console  bool          `yaml:"console" envconfig:"LOG_CONSOLE"`
}

// NewLogger builds a named zap logger. Entries go to stdout unless Sink names a file.
func NewLogger(cfg Log, name string) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if cfg.Console {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	ws, sinkErr := openSink(cfg.Sink)
	core := zapcore.NewCore(enc, ws, zap.NewAtomicLevelAt(cfg.LogLevel))
	log := zap.New(core, zap.AddCaller(), zap.ErrorOutput(zapcore.Lock(os.Stderr))).Named(name)
	if sinkErr != nil {
		fmt.Fprintf(os.Stderr, "logger: open sink %q: %v, writing to stdout\n", cfg.Sink, sinkErr)
		log.Warn("log sink unavailable, writing to stdout", zap.String("sink", cfg.Sink), zap.Error(sinkErr))
	}
	return log
}

// openSink returns the file sink, or stdout when sink is empty or cannot be opened.
func openSink(sink string) (zapcore.WriteSyncer, error) {
	stdout := zapcore.Lock(os.Stdout)
	if sink == "" {
		return stdout, nil
	}
	f, err := os.OpenFile(sink, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return stdout, err
	}
	return zapcore.AddSync(f), nil
}
