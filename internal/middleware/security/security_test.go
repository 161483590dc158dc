package security

import (
	"bytes"
	"crypto/tls"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"txdash/internal/log"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestHeaders(t *testing.T) {
	h := Headers(DefaultHeadersConfig())(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	csp := rec.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "script-src 'self' https://unpkg.com") {
		t.Errorf("CSP = %q", csp)
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("X-Frame-Options = %q", rec.Header().Get("X-Frame-Options"))
	}
	if _, ok := rec.Header()["Cross-Origin-Embedder-Policy"]; ok {
		t.Error("empty COEP should not be sent")
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent over plain HTTP")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("HSTS = %q", got)
	}
}

func TestExtractClientIP(t *testing.T) {
	d, err := NewDetector(log.Discard(), []string{"10.0.0.0/8", "192.0.2.7"})
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"direct", "203.0.113.9:5555", "", "", "203.0.113.9"},
		{"untrusted peer ignores header", "203.0.113.9:5555", "198.51.100.1", "", "203.0.113.9"},
		{"trusted cidr", "10.1.2.3:80", "198.51.100.1, 10.1.2.3", "", "198.51.100.1"},
		{"trusted single ip", "192.0.2.7:80", "", "198.51.100.2", "198.51.100.2"},
		{"loopback with garbage header", "127.0.0.1:80", "not-an-ip", "", "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := NewDetector(log.Discard(), []string{"nope"}); err == nil {
		t.Error("expected error for invalid proxy")
	}
}

func TestDetectorMiddlewareLogsOnly(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelDebug, Output: &buf})
	d, err := NewDetector(logger, nil)
	if err != nil {
		t.Fatal(err)
	}
	h := d.Middleware(okHandler())

	r := httptest.NewRequest(http.MethodGet, "/ui/transactions?q=../etc/passwd", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, suspicious requests must pass through", rec.Code)
	}
	if d.SuspiciousCount() != 1 {
		t.Fatalf("count = %d", d.SuspiciousCount())
	}
	if !strings.Contains(buf.String(), "Suspicious request") {
		t.Errorf("log output = %q", buf.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ui/transactions?q=alice", nil))
	if d.SuspiciousCount() != 1 {
		t.Error("plain query should not be flagged")
	}
}
