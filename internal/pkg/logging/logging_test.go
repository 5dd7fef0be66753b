package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/samirrijal/poigeo/internal/pkg/logging"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := logging.ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, "poigeo-api", "info", "json")

	logger.Debug("hidden")
	logger.Info("geometry column created", "table", "poi")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %s", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if rec["service"] != "poigeo-api" {
		t.Errorf("expected service attribute, got %v", rec["service"])
	}
	if rec["table"] != "poi" {
		t.Errorf("expected table attribute, got %v", rec["table"])
	}
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logging.New(&buf, "", "debug", "text").Debug("ensure", "table", "poi")

	out := buf.String()
	if !strings.Contains(out, "level=DEBUG") || !strings.Contains(out, "table=poi") {
		t.Errorf("unexpected text output %q", out)
	}
	if strings.Contains(out, "service=") {
		t.Errorf("empty service should be omitted, got %q", out)
	}
}

func TestNew_RequestIDFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, "svc", "info", "json")

	ctx := logging.WithRequestID(context.Background(), "req-42")
	logger.InfoContext(ctx, "query")
	logger.With("table", "poi").InfoContext(context.Background(), "no id")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %d", len(lines))
	}
	var first, second map[string]any
	_ = json.Unmarshal([]byte(lines[0]), &first)
	_ = json.Unmarshal([]byte(lines[1]), &second)

	if first["request_id"] != "req-42" {
		t.Errorf("expected request_id req-42, got %v", first["request_id"])
	}
	if _, ok := second["request_id"]; ok {
		t.Errorf("unexpected request_id without context: %v", second)
	}
	if second["table"] != "poi" {
		t.Errorf("WithAttrs lost through context handler: %v", second)
	}
}
