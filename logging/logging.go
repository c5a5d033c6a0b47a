// Package logging builds the zap loggers the render CLI and the template
// compiler's diagnostics write to. The bootstrap/production split follows
// dalemusser-waffle/logging's shape; the compile-error hook is this
// module's own, carrying the generated-IR dump the code generator's error
// model surfaces on compilation failure.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/corvid-labs/templex/tmplerr"
)

// Bootstrap returns a console logger usable before flags and .env are
// parsed, when the real level and environment are not yet known.
func Bootstrap() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// Build constructs the logger for the resolved configuration: env "prod"
// selects the JSON production encoder, anything else the console
// development encoder. An unrecognized level falls back to info rather
// than failing a render run over a logging flag.
func Build(level, env string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	var cfg zap.Config
	if env == "prod" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	return cfg.Build()
}

// LogCompileError writes a CompileError and its generated-IR dump at error
// level, the diagnostics channel compilation failures re-raise through.
func LogCompileError(logger *zap.Logger, ce *tmplerr.CompileError) {
	logger.Error("template compile error",
		zap.String("template", ce.Filename),
		zap.Int("line", ce.Line),
		zap.String("message", ce.Message),
		zap.String("ir_dump", ce.Dump),
	)
}
