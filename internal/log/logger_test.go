package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"Error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf, Component: ComponentDatastore, Level: slog.LevelDebug})
	l.Info("hello", FieldCustomers, 3)

	out := buf.String()
	if !strings.Contains(out, "component=datastore") || !strings.Contains(out, "customers=3") {
		t.Fatalf("unexpected output: %s", out)
	}

	buf.Reset()
	l.WithComponent(ComponentHTTP).Warn("switched")
	if !strings.Contains(buf.String(), "component=http") {
		t.Fatalf("component not switched: %s", buf.String())
	}
}

func TestJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf, JSON: true})
	l.Error("broken", FieldError, "x")
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"error":"x"`) {
		t.Fatalf("expected JSON output: %s", buf.String())
	}
}

func TestMiddlewareStoresLogger(t *testing.T) {
	l := Discard()
	var got *Logger
	h := Middleware(l)(RequestIDMiddleware(func(*http.Request) string { return "req_1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = FromContext(r.Context())
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if got == nil || got.Component() != l.Component() {
		t.Fatalf("logger not propagated: %+v", got)
	}

	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatalf("fallback logger should be marked unknown")
	}
}

func TestStructuredLoggerError(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf, Component: ComponentClient}))
	sl.LogError(context.Background(), "fetch failed", errors.New("refused"), OpFetch, ErrorTypeFetch, nil)
	out := buf.String()
	for _, part := range []string{"error=refused", "operation=fetch", "error_type=fetch_failure", "component=client"} {
		if !strings.Contains(out, part) {
			t.Errorf("missing %s in %s", part, out)
		}
	}
}
