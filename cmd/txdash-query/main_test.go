package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const payload = `{
  "customers": [{"id": 1, "name": "Alice"}, {"id": "2", "name": "Bob"}],
  "transactions": [
    {"id": 10, "customer_id": 1, "date": "2024-01-02", "amount": 10},
    {"id": 11, "customer_id": 1, "date": "2024-01-01", "amount": 50},
    {"id": 12, "customer_id": 1, "date": "2024-01-01", "amount": 25},
    {"id": 13, "customer_id": 2, "date": "2024-01-01", "amount": "120.5"},
    {"id": 14, "date": "2024-01-01", "amount": 1}
  ]
}`

func newDataServer(t *testing.T, status int) string {
	t.Helper()
	return servePayload(t, status, payload)
}

func servePayload(t *testing.T, status int, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestFilterTable(t *testing.T) {
	url := newDataServer(t, http.StatusOK)

	code, out, errOut := runCLI(t, "-url", url, "-q", "BOB")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "Customer Name") || !strings.Contains(out, "120.5") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if strings.Contains(out, "Alice") {
		t.Errorf("Alice should be filtered out:\n%s", out)
	}
	if !strings.Contains(errOut, "skipped 1 malformed records") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestSeries(t *testing.T) {
	url := newDataServer(t, http.StatusOK)

	code, out, _ := runCLI(t, "-url", url, "-customer", "1", "-json")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	want := `{
  "dates": [
    "2024-01-02",
    "2024-01-01"
  ],
  "totals": [
    10,
    75
  ]
}`
	if strings.TrimSpace(out) != want {
		t.Errorf("got\n%s\nwant\n%s", out, want)
	}

	code, out, _ = runCLI(t, "-url", url, "-customer", "1.0", "-sort")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if lines[0] != "Transaction History for Alice" || !strings.HasPrefix(lines[1], "2024-01-01") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestSeriesStringIDs(t *testing.T) {
	url := servePayload(t, http.StatusOK, `{
  "customers": [{"id": "007", "name": "Bond"}, {"id": 7, "name": "Seven"}],
  "transactions": [
    {"id": 1, "customer_id": "007", "date": "2024-01-01", "amount": 3},
    {"id": 2, "customer_id": 7, "date": "2024-01-01", "amount": 9}
  ]
}`)

	code, out, _ := runCLI(t, "-url", url, "-customer", "007")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if lines[0] != "Transaction History for Bond" || !strings.HasSuffix(strings.TrimSpace(lines[1]), "3") {
		t.Errorf("unexpected output:\n%s", out)
	}

	code, out, _ = runCLI(t, "-url", url, "-customer", "7.0")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.HasPrefix(out, "Transaction History for Seven\n") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestFetchFailure(t *testing.T) {
	url := newDataServer(t, http.StatusInternalServerError)

	code, _, errOut := runCLI(t, "-url", url, "-attempts", "1")
	if code != 1 {
		t.Fatalf("exit %d, want 1", code)
	}
	if !strings.Contains(errOut, "fetch failure") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestBadFlags(t *testing.T) {
	if code, _, _ := runCLI(t, "-nope"); code != 2 {
		t.Errorf("exit %d, want 2", code)
	}
	if code, _, _ := runCLI(t, "extra"); code != 2 {
		t.Errorf("exit %d, want 2", code)
	}
}
