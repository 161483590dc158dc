package worker

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"txdash/internal/amqp"
	"txdash/internal/core"
	"txdash/internal/sources/memory"
	"txdash/internal/storage"
)

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.DatasetRefreshedMessage
	err  error
}

func (p *fakePublisher) PublishDatasetRefreshed(_ context.Context, msg *amqp.DatasetRefreshedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

type failingReader struct{}

func (failingReader) ReadDataset(context.Context) (core.Dataset, error) {
	return core.Dataset{}, errors.New("upstream down")
}

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "mirror.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestMirrorOnceCopiesAndPublishes(t *testing.T) {
	ctx := context.Background()
	upstream := memory.New(memory.Demo())
	repo := newRepo(t)
	pub := &fakePublisher{}

	w := NewMirrorWorker(upstream, "memory", repo, repo, pub)
	wrote, err := w.MirrorOnce(ctx)
	if err != nil || !wrote {
		t.Fatalf("MirrorOnce = %v, %v", wrote, err)
	}

	got, _ := repo.ReadDataset(ctx)
	want, _ := upstream.ReadDataset(ctx)
	if len(got.Transactions) != len(want.Transactions) || len(got.Customers) != len(want.Customers) {
		t.Fatalf("mirror mismatch: got %+v", got)
	}
	if pub.count() != 1 || pub.msgs[0].Source != "memory" || pub.msgs[0].Transactions != len(want.Transactions) {
		t.Fatalf("unexpected messages: %+v", pub.msgs)
	}

	// unchanged upstream: no write, no message
	if wrote, err := w.MirrorOnce(ctx); err != nil || wrote {
		t.Fatalf("second MirrorOnce = %v, %v", wrote, err)
	}
	if pub.count() != 1 {
		t.Fatalf("unchanged dataset should not be announced")
	}

	// change upstream
	if err := upstream.ReplaceDataset(ctx, "test", core.Dataset{Customers: []core.Customer{{ID: "9", Name: "Zed"}}}); err != nil {
		t.Fatal(err)
	}
	if wrote, err := w.MirrorOnce(ctx); err != nil || !wrote {
		t.Fatalf("third MirrorOnce = %v, %v", wrote, err)
	}
	if pub.count() != 2 {
		t.Fatalf("change should be announced")
	}
}

func TestMirrorOnceFailureKeepsTarget(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	if err := repo.ReplaceDataset(ctx, "seed", memory.Demo()); err != nil {
		t.Fatal(err)
	}

	w := NewMirrorWorker(failingReader{}, "remote", repo, repo, nil)
	if _, err := w.MirrorOnce(ctx); !errors.Is(err, core.ErrFetchFailure) {
		t.Fatalf("expected ErrFetchFailure, got %v", err)
	}
	got, _ := repo.ReadDataset(ctx)
	if got.IsEmpty() {
		t.Fatal("failed mirror must not clear the target")
	}
}

func TestMirrorPublishFailureIsNotFatal(t *testing.T) {
	w := NewMirrorWorker(memory.New(memory.Demo()), "memory", memory.New(core.Dataset{}), nil, &fakePublisher{err: errors.New("broker down")})
	if wrote, err := w.MirrorOnce(context.Background()); err != nil || !wrote {
		t.Fatalf("MirrorOnce = %v, %v", wrote, err)
	}
}

func TestStartupMirrorCheck(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	pub := &fakePublisher{}
	w := NewMirrorWorker(memory.New(memory.Demo()), "memory", repo, repo, pub)

	if err := w.StartupMirrorCheck(ctx, time.Hour); err != nil {
		t.Fatalf("StartupMirrorCheck: %v", err)
	}
	if pub.count() != 1 {
		t.Fatalf("never-refreshed target should be mirrored at startup")
	}

	fresh := NewMirrorWorker(failingReader{}, "remote", repo, repo, pub)
	if err := fresh.StartupMirrorCheck(ctx, time.Hour); err != nil {
		t.Fatalf("fresh target should skip the upstream read, got %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pub := &fakePublisher{}
	w := NewMirrorWorker(memory.New(memory.Demo()), "memory", memory.New(core.Dataset{}), nil, pub)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, 5*time.Millisecond) }()

	deadline := time.After(2 * time.Second)
	for pub.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("worker never mirrored")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
}
