package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestInit_JSONFormatProducesParsableOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json"})
	mu.Lock()
	base = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: levelVar()}))
	mu.Unlock()

	Info("hello", "key", "value")
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Errorf("output = %q, want json-encoded message", buf.String())
	}
}

func TestInit_DebugLevelBelowThresholdIsSuppressed(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Format: "text"})
	mu.Lock()
	base = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: levelVar()}))
	mu.Unlock()

	Info("should be suppressed")
	if buf.Len() != 0 {
		t.Errorf("output = %q, want nothing logged below the warn threshold", buf.String())
	}
	Warn("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Errorf("output = %q, want the warn line", buf.String())
	}
}

func TestWithContext_FallsBackToBaseLoggerWithoutLogContext(t *testing.T) {
	if WithContext(context.Background()) == nil {
		t.Fatal("expected a non-nil logger even with no LogContext present")
	}
}

func TestLogContext_WithWorkspace_ClonesRatherThanMutates(t *testing.T) {
	original := &LogContext{RequestID: "req_1", Actor: "alice"}
	updated := original.WithWorkspace("ws_1")
	if original.WorkspaceID != "" {
		t.Error("original LogContext should be unmodified")
	}
	if updated.WorkspaceID != "ws_1" || updated.RequestID != "req_1" {
		t.Errorf("updated = %+v, want workspace set with other fields preserved", updated)
	}
}

func TestFromContext_RoundTrips(t *testing.T) {
	lc := &LogContext{RequestID: "req_1"}
	ctx := ContextWithLogContext(context.Background(), lc)
	got := FromContext(ctx)
	if got != lc {
		t.Errorf("got %+v, want the same LogContext instance back", got)
	}
}

func TestFromContext_NilContextReturnsNil(t *testing.T) {
	if FromContext(nil) != nil {
		t.Error("expected nil for a nil context")
	}
}
