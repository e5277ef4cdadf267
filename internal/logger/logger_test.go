package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Environments(t *testing.T) {
	for _, env := range []string{"prod", "staging", "local", "dev", "docker", "test"} {
		t.Run(env, func(t *testing.T) {
			l, err := NewLogger(env)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if l == nil {
				t.Fatal("nil logger")
			}
		})
	}
}

func TestNewLogger_UnknownEnv(t *testing.T) {
	if _, err := NewLogger("mars"); err == nil {
		t.Fatal("expected error for unknown env")
	}
}

func TestNewLogger_LevelOverride(t *testing.T) {
	l, err := NewLogger("prod", "warn")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !l.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled")
	}

	if _, err := NewLogger("prod", "loud"); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestFromContextOr(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	fallback := zap.New(core).With(zap.String("from", "fallback"))

	FromContextOr(context.Background(), fallback).Info("a")
	if logs.FilterField(zap.String("from", "fallback")).Len() != 1 {
		t.Error("expected fallback logger without a request logger")
	}

	ctx := ContextWithLogger(context.Background(), zap.New(core).With(zap.String("from", "request")))
	FromContextOr(ctx, fallback).Info("b")
	if logs.FilterField(zap.String("from", "request")).Len() != 1 {
		t.Error("expected request logger from context")
	}

	if FromContextOr(context.Background(), nil) == nil {
		t.Error("nil fallback must yield a usable logger")
	}
}

func TestWithFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := ContextWithLogger(context.Background(), zap.New(core))
	ctx = WithFields(ctx, zap.String("run_id", "r1"))

	FromContext(ctx).Info("x")
	if logs.FilterField(zap.String("run_id", "r1")).Len() != 1 {
		t.Error("expected field carried by context logger")
	}
}
