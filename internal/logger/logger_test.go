package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Environments(t *testing.T) {
	for _, env := range []string{"prod", "local", "dev", "docker"} {
		t.Run(env, func(t *testing.T) {
			l, err := NewLogger(env, Options{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if l == nil {
				t.Fatal("expected logger")
			}
		})
	}
}

func TestNewLogger_UnknownEnv(t *testing.T) {
	if _, err := NewLogger("staging", Options{}); err == nil {
		t.Fatal("expected error for unknown env")
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	if _, err := NewLogger("prod", Options{Level: "verbose"}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestResolveLevel(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want zapcore.Level
	}{
		{"default", Options{}, zapcore.InfoLevel},
		{"override", Options{Level: "warn"}, zapcore.WarnLevel},
		{"debug flag wins", Options{Level: "error", Debug: true}, zapcore.DebugLevel},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := resolveLevel(zapcore.InfoLevel, tc.opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	reqLogger := zap.New(core)

	ctx := ContextWithLogger(context.Background(), reqLogger)
	FromContext(ctx).Info("hello")
	if logs.Len() != 1 {
		t.Fatalf("expected 1 log entry, got %d", logs.Len())
	}

	fallbackCore, fallbackLogs := observer.New(zapcore.InfoLevel)
	FromContext(context.Background(), zap.New(fallbackCore)).Info("fallback")
	if fallbackLogs.Len() != 1 {
		t.Errorf("expected fallback logger to be used")
	}

	// no logger, no fallback: must not panic
	FromContext(context.Background()).Info("dropped")
}
