package cmd

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger logs warnings and errors to w in console format, or everything
// with verbose. logFile, when set, receives every entry as JSON. The
// returned func flushes the logger and closes the log file.
func newLogger(w io.Writer, verbose bool, logFile string) (*zap.Logger, func(), error) {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.TimeKey = ""
	consoleCfg.CallerKey = ""
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(zapcore.AddSync(w)), level),
	}

	var file *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		file = f
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.Lock(f),
			zapcore.DebugLevel,
		))
	}
	l := zap.New(zapcore.NewTee(cores...))
	return l, func() {
		_ = l.Sync()
		if file != nil {
			_ = file.Close()
		}
	}, nil
}
