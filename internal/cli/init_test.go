package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"txdash/internal/config"
	"txdash/internal/log"
)

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Defaults()
	cfg.LogFormat = "JSON"
	cfg.LogLevel = "warn"

	logger := SetupLogger(cfg, &buf)
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info should be filtered at warn level")
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("expected JSON output, got %q", out)
	}
}

func TestLoadConfigValidates(t *testing.T) {
	t.Setenv("DATA_BACKEND", "remote")
	t.Setenv("REMOTE_DATA_URL", "")
	if _, err := LoadConfig(); err == nil || !strings.Contains(err.Error(), "REMOTE_DATA_URL is required") {
		t.Fatalf("err = %v", err)
	}

	t.Setenv("DATA_BACKEND", "memory")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DataBackend != config.BackendMemory {
		t.Errorf("backend = %q", cfg.DataBackend)
	}
}

func TestOpenBackendMemory(t *testing.T) {
	cfg := config.Defaults()
	cfg.DataDir = t.TempDir()

	res, err := OpenBackend(context.Background(), cfg, config.BackendMemory, log.Discard())
	if err != nil {
		t.Fatalf("OpenBackend: %v", err)
	}
	defer res.Close()

	ds, err := res.Reader.ReadDataset(context.Background())
	if err != nil {
		t.Fatalf("ReadDataset: %v", err)
	}
	if len(ds.Customers) == 0 {
		t.Error("empty data dir should fall back to the demo dataset")
	}

	if _, err := OpenBackend(context.Background(), cfg, "mysql", log.Discard()); err == nil {
		t.Error("expected error for unknown backend")
	}
}
