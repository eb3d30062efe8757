package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"dealflow/internal/config"
)

func TestNew_LevelFallback(t *testing.T) {
	l, err := New(config.LogConfig{Level: "not-a-level", Encoding: "json"}, "dealflow-test")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !l.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info should be enabled")
	}
	if l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug should be disabled")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatalf("expected nop logger")
	}
}
