// Package logger builds the process zap logger.
package logger

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/campus-events/eventsvc/internal/config"
)

// New returns a logger configured from cfg and a flush function to defer.
// JSON output uses the production encoder; otherwise a colored console
// encoder suited to local development.
func New(cfg config.Log) (*zap.Logger, func()) {
	var lvl zapcore.Level
	if err := lvl.Set(cfg.Level); err != nil {
		lvl = zapcore.InfoLevel
	}

	var enc zapcore.Encoder
	if cfg.JSON {
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		ec.TimeKey = "ts"
		ec.EncodeCaller = zapcore.ShortCallerEncoder
		enc = zapcore.NewJSONEncoder(ec)
	} else {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.EncodeCaller = zapcore.ShortCallerEncoder
		enc = zapcore.NewConsoleEncoder(ec)
	}

	type sink struct {
		enc zapcore.Encoder
		ws  zapcore.WriteSyncer
	}
	sinks := []sink{{enc, zapcore.Lock(zapcore.AddSync(os.Stdout))}}

	if cfg.File.Enable {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File.Filename,
			MaxSize:    max(1, cfg.File.MaxSizeMB),
			MaxBackups: max(0, cfg.File.MaxBackups),
			MaxAge:     max(0, cfg.File.MaxAgeDays),
			Compress:   cfg.File.Compress,
		}
		// Files always get JSON so they can be shipped.
		fileEnc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		sinks = append(sinks, sink{fileEnc, zapcore.AddSync(rotator)})
	}

	tee := func(enab zapcore.LevelEnabler) zapcore.Core {
		cores := make([]zapcore.Core, 0, len(sinks))
		for _, s := range sinks {
			cores = append(cores, zapcore.NewCore(s.enc, s.ws, enab))
		}
		return zapcore.NewTee(cores...)
	}

	// Errors bypass the sampler and are always written.
	low := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= lvl && l < zapcore.ErrorLevel })
	high := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= lvl && l >= zapcore.ErrorLevel })
	core := zapcore.NewTee(
		zapcore.NewSamplerWithOptions(tee(low), time.Second, 100, 100),
		tee(high),
	)

	opts := []zap.Option{zap.AddCaller()}
	if !cfg.JSON {
		opts = append(opts, zap.Development())
	}
	l := zap.New(core, opts...)
	return l, func() { _ = l.Sync() }
}
