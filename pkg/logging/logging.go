// Package logging builds the zap logger shared by every prun component.
package logging

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger writing to out. Console output is the default; json
// selects the production JSON encoding for machine consumption. verbose
// lowers the level from warn to debug.
func New(out io.Writer, verbose, json bool) *zap.SugaredLogger {
	level := zap.WarnLevel
	if verbose {
		level = zap.DebugLevel
	}

	var encoder zapcore.Encoder
	if json {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.TimeKey = ""
		cfg.CallerKey = ""
		encoder = zapcore.NewConsoleEncoder(cfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(out), zap.NewAtomicLevelAt(level))
	return zap.New(core).Sugar()
}
