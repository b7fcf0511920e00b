package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}

	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q): expected %v, got %v", in, want, got)
		}
	}
}

func TestNewLogger_JSONWithTraceID(t *testing.T) {
	var buf bytes.Buffer
	logger := WithTraceID(NewLogger(&buf, "json", slog.LevelInfo), "t1")

	logger.Info("batch finished", "urls", 2)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json log line, got %q: %v", buf.String(), err)
	}
	if entry["trace_id"] != "t1" {
		t.Errorf("expected trace_id t1, got %v", entry["trace_id"])
	}
	if entry["msg"] != "batch finished" {
		t.Errorf("unexpected msg: %v", entry["msg"])
	}
}

func TestNewLogger_TextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "text", slog.LevelWarn)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info should be filtered: %q", out)
	}
	if !strings.Contains(out, "msg=shown") {
		t.Errorf("expected text warn line, got %q", out)
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) != slog.Default() {
		t.Error("expected default logger without value in context")
	}

	logger := NewLogger(&bytes.Buffer{}, "json", slog.LevelInfo)
	if FromContext(WithLogger(context.Background(), logger)) != logger {
		t.Error("expected logger from context")
	}
}
