package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Output: &buf, Component: ComponentAPI})
	l.Info("hello", FieldUserID, 7)
	l.WithComponent(ComponentWorker).Debug("tick")

	out := buf.String()
	if !strings.Contains(out, "component=api") || !strings.Contains(out, "user_id=7") {
		t.Fatalf("missing attributes: %s", out)
	}
	if !strings.Contains(out, "component=worker") {
		t.Fatalf("component override missing: %s", out)
	}
}

func TestStructuredLoggerHTTPLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelInfo, Output: &buf, Format: "json"}))
	r := httptest.NewRequest("GET", "/budgets?category=Food", nil)

	sl.LogHTTPEnd(context.Background(), r, 503, 12, "10.0.0.1")
	out := buf.String()
	for _, want := range []string{`"level":"ERROR"`, `"status_code":503`, `"query":"category=Food"`, `"component":"http"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in %s", want, out)
		}
	}

	buf.Reset()
	sl.LogError(context.Background(), "fetch failed", errors.New("boom"), ComponentAPI, OpList, ErrorTypeNetwork, nil)
	if !strings.Contains(buf.String(), `"error_type":"network_error"`) {
		t.Fatalf("missing error type: %s", buf.String())
	}
}

func TestFromContextFallback(t *testing.T) {
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatal("expected fallback logger")
	}
	l := Discard()
	if FromContext(NewContext(context.Background(), l)) != l {
		t.Fatal("expected stored logger")
	}
}
