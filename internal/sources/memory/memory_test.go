package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"txdash/internal/core"
)

func TestNewFromDirMissingSeedUsesDemo(t *testing.T) {
	s, err := NewFromDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewFromDir: %v", err)
	}
	ds, err := s.ReadDataset(context.Background())
	if err != nil {
		t.Fatalf("ReadDataset: %v", err)
	}
	if len(ds.Customers) != len(Demo().Customers) || len(ds.Transactions) != len(Demo().Transactions) {
		t.Fatalf("expected demo dataset, got %+v", ds)
	}
}

func TestNewFromDirReadsSeed(t *testing.T) {
	dir := t.TempDir()
	seed := `{"customers":[{"id":1,"name":"Alice"}],"transactions":[{"id":10,"customer_id":1,"date":"2024-01-01","amount":50}]}`
	if err := os.WriteFile(filepath.Join(dir, SeedFile), []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := NewFromDir(dir)
	if err != nil {
		t.Fatalf("NewFromDir: %v", err)
	}
	ds, _ := s.ReadDataset(context.Background())
	if len(ds.Customers) != 1 || ds.Customers[0].Name != "Alice" {
		t.Fatalf("customers: %+v", ds.Customers)
	}
	if len(ds.Transactions) != 1 || ds.Transactions[0].Amount != 50 {
		t.Fatalf("transactions: %+v", ds.Transactions)
	}
}

func TestNewFromDirMalformedSeed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, SeedFile), []byte(`[1,2]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFromDir(dir); err == nil {
		t.Fatalf("expected error for malformed seed")
	}
}

func TestReplaceAndReadAreIsolated(t *testing.T) {
	s := New(core.Dataset{})
	ctx := context.Background()

	in := core.Dataset{Customers: []core.Customer{{ID: "1", Name: "Alice"}}}
	if err := s.ReplaceDataset(ctx, "test", in); err != nil {
		t.Fatal(err)
	}
	in.Customers[0].Name = "changed"

	got, _ := s.ReadDataset(ctx)
	if got.Customers[0].Name != "Alice" {
		t.Fatalf("store aliased caller slice: %+v", got.Customers)
	}
	got.Customers[0].Name = "mutated"
	again, _ := s.ReadDataset(ctx)
	if again.Customers[0].Name != "Alice" {
		t.Fatalf("ReadDataset returned shared slice")
	}
	if again.Transactions == nil {
		t.Fatalf("expected non-nil transactions")
	}
}
