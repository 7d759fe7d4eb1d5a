package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kailas-cloud/facedex/internal/version"
)

// Options tune the logger beyond the environment defaults.
type Options struct {
	// Level overrides the environment default: debug, info, warn, error.
	Level string
	// Debug forces debug level regardless of Level.
	Debug bool
}

// NewLogger creates a zap logger for the given environment.
// prod uses JSON output, local/dev/docker use console output.
func NewLogger(env string, opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	switch env {
	case "prod":
		cfg = zap.NewProductionConfig()
	case "local", "dev", "docker":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown environment %q for logger", env)
	}

	level, err := resolveLevel(cfg.Level.Level(), opts)
	if err != nil {
		return nil, err
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l.With(zap.String("service", version.Name)), nil
}

func resolveLevel(def zapcore.Level, opts Options) (zapcore.Level, error) {
	if opts.Debug {
		return zapcore.DebugLevel, nil
	}
	if opts.Level == "" {
		return def, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
		return def, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}
	return level, nil
}
