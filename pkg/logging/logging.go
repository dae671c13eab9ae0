// Package logging builds the zap-backed root logger shared by every command.
package logging

import (
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	AppName string
	Level   string
	Pretty  bool
}

// New builds the root logger. Pretty selects zap's console encoder; otherwise lines are JSON.
// The returned func flushes buffered output.
func New(opts Options) (ectologger.Logger, func() error, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	cfg := zap.NewProductionConfig()
	if opts.Pretty {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true

	zl, err := cfg.Build(zap.WithCaller(false))
	if err != nil {
		return nil, nil, fmt.Errorf("error building zap logger: %w", err)
	}
	return FromZap(zl, opts.AppName), zl.Sync, nil
}

// FromZap adapts an existing zap logger, tagging every line with the app name when given.
func FromZap(zl *zap.Logger, appName string) ectologger.Logger {
	if appName != "" {
		zl = zl.With(zap.String("app", appName))
	}
	return zapadapter.NewZapEctoLogger(zl, nil)
}
