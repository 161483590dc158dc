package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"txdash/internal/log"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Output: &buf, Component: log.ComponentHTTP})
	m := NewMiddleware(logger, func(*http.Request) string { return "203.0.113.9" })

	var seen string
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		log.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ui/transactions?q=al", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q", seen)
	}
	if rec.Header().Get(HeaderRequestID) != seen {
		t.Errorf("response header = %q, want %q", rec.Header().Get(HeaderRequestID), seen)
	}

	out := buf.String()
	if !strings.Contains(out, "request_id="+seen) {
		t.Errorf("handler log missing request id: %s", out)
	}
	if !strings.Contains(out, "status_code=418") || !strings.Contains(out, "client_ip=203.0.113.9") {
		t.Errorf("completion log incomplete: %s", out)
	}

	if got := m.GetMetrics(); got.TotalRequests != 1 {
		t.Errorf("TotalRequests = %d", got.TotalRequests)
	}
}

func TestGenerateRequestIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
