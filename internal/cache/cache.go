package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cleaner is implemented by caches whose entries expire.
type Cleaner interface {
	CleanExpired() int
}

// Purger is implemented by caches that can be emptied at once.
type Purger interface {
	Purge() int
}

// Managed is what the Manager tracks.
type Managed interface {
	Cleaner
	Purger
}

// Manager runs periodic cleanup for a set of caches and empties them all
// when the data they were derived from changes.
type Manager struct {
	logger   *slog.Logger
	mu       sync.Mutex
	caches   []Managed
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (m *Manager) Register(c Managed) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, c)
}

// PurgeAll empties every registered cache.
func (m *Manager) PurgeAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, c := range m.caches {
		total += c.Purge()
	}
	if total > 0 {
		m.logger.Debug("Purged caches", "entries", total)
	}
	return total
}

func (m *Manager) cleanExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// StartCleanup begins periodic cleanup of all registered caches.
func (m *Manager) StartCleanup(interval time.Duration) {
	go func() {
		defer close(m.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n := m.cleanExpired(); n > 0 {
					m.logger.Debug("Removed expired cache entries", "entries", n)
				}
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop ends the cleanup goroutine started by StartCleanup and waits for it.
// It must only be called after StartCleanup.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
		<-m.done
	})
}
