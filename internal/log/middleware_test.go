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

func captureLogger(buf *bytes.Buffer) *Logger {
	return New(Config{
		Component: "test",
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	logger := FromContext(context.Background())
	if logger == nil {
		t.Fatal("expected a usable logger even without one in context")
	}
	if logger.Component() != "unknown" {
		t.Errorf("fallback component = %q, want %q", logger.Component(), "unknown")
	}
}

func TestFromContextReturnsStoredLogger(t *testing.T) {
	var buf bytes.Buffer
	stored := captureLogger(&buf)
	ctx := context.WithValue(context.Background(), LoggerContextKey, stored)

	if got := FromContext(ctx); got != stored {
		t.Error("expected the logger stored in context")
	}
}

func TestLogHTTPStartIncludesRequestFields(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(captureLogger(&buf))

	r := httptest.NewRequest("GET", "/api/transactions?type=income", nil)
	sl.LogHTTPStart(context.Background(), r, "10.0.0.7")

	out := buf.String()
	for _, want := range []string{"HTTP request started", "path=/api/transactions", "client_ip=10.0.0.7", "method=GET"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestLogHTTPEndLevelTracksStatus(t *testing.T) {
	tests := []struct {
		status    int
		wantLevel string
	}{
		{200, "level=INFO"},
		{404, "level=WARN"},
		{500, "level=ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(captureLogger(&buf))

		r := httptest.NewRequest("GET", "/api/transactions", nil)
		sl.LogHTTPEnd(context.Background(), r, tt.status, 12, "10.0.0.7")

		if !strings.Contains(buf.String(), tt.wantLevel) {
			t.Errorf("status %d: expected %s in output:\n%s", tt.status, tt.wantLevel, buf.String())
		}
	}
}

func TestLogErrorCarriesErrorAndComponent(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(captureLogger(&buf))

	sl.LogError(context.Background(), "boom", errors.New("disk full"), ComponentHTTP, "GET /api/transactions", NewFields())

	out := buf.String()
	for _, want := range []string{"level=ERROR", "disk full", "component=http"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
