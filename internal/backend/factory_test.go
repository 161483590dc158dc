package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"txdash/internal/config"
	"txdash/internal/core"
	"txdash/internal/log"
)

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(log.Discard().Logger)

	t.Run("memory", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: MemoryBackend, DataDirectory: t.TempDir()})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		defer res.Close()
		if res.Reader == nil || res.Writer == nil {
			t.Fatal("memory backend should read and write")
		}
		ds, err := res.Reader.ReadDataset(ctx)
		if err != nil || ds.IsEmpty() {
			t.Fatalf("expected demo dataset, got %+v, %v", ds, err)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "x.db")})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		defer res.Close()
		if err := res.Writer.ReplaceDataset(ctx, "test", core.Dataset{Customers: []core.Customer{{ID: "1", Name: "A"}}}); err != nil {
			t.Fatal(err)
		}
		ds, _ := res.Reader.ReadDataset(ctx)
		if len(ds.Customers) != 1 {
			t.Fatalf("customers = %+v", ds.Customers)
		}
	})

	t.Run("remote is read-only", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: RemoteBackend, RemoteDataURL: "http://127.0.0.1:1/api/data", FetchAttempts: 1})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		if res.Writer != nil {
			t.Fatal("remote backend should be read-only")
		}
	})

	t.Run("invalid", func(t *testing.T) {
		for _, cfg := range []Config{{Type: "mysql"}, {Type: PostgresBackend}, {Type: RemoteBackend}, {Type: SheetsBackend}} {
			if _, err := f.CreateBackend(ctx, cfg); err == nil {
				t.Errorf("%+v: expected error", cfg)
			}
		}
	})
}

func TestFromAppConfig(t *testing.T) {
	app := config.Defaults()
	app.RemoteDataURL = "http://example.test/api/data"

	cfg, err := FromAppConfig(app, "remote")
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != RemoteBackend || cfg.RemoteDataURL != app.RemoteDataURL || cfg.FetchAttempts != app.FetchAttempts {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	if _, err := FromAppConfig(app, "bogus"); err == nil || !strings.Contains(err.Error(), "bogus") {
		t.Fatalf("expected invalid type error, got %v", err)
	}
	if _, err := FromAppConfig(nil, "memory"); err == nil {
		t.Fatal("expected error for nil config")
	}
	if got := GetBackendTypeStrings(); len(got) != 5 {
		t.Fatalf("GetBackendTypeStrings() = %v", got)
	}
}
