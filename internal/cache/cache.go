// Package cache holds read models computed from a snapshot. Entries are
// scoped to the snapshot version they were computed from.
package cache

import (
	"sort"
	"sync"
	"time"

	"billtracker/internal/log"
)

// Cache is a version scoped cache of computed views.
type Cache[T any] interface {
	// Get returns the entry for key computed from version.
	Get(version uint64, key string) (T, bool)
	// Set stores an entry. A version newer than any seen drops older entries.
	Set(version uint64, key string, data T)
	// Purge drops every entry.
	Purge()
	// Size returns the number of live entries.
	Size() int
}

// Stats are a cache's counters.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int
}

// Cleaner is implemented by caches the Manager sweeps.
type Cleaner interface {
	CleanExpired() int
	Stats() Stats
}

// Manager sweeps expired entries of registered caches on an interval and
// reports their counters.
type Manager struct {
	mu     sync.Mutex
	caches map[string]Cleaner
	logger *log.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewManager creates a manager. logger may be nil.
func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Manager{
		caches: make(map[string]Cleaner),
		logger: logger.WithComponent(log.ComponentCache),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Register adds a named cache. Registering a name twice replaces the first.
func (m *Manager) Register(name string, c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches[name] = c
}

// Stats returns the counters of every registered cache by name.
func (m *Manager) Stats() map[string]Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Stats, len(m.caches))
	for name, c := range m.caches {
		out[name] = c.Stats()
	}
	return out
}

// Names returns the registered cache names in order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.caches))
	for name := range m.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StartCleanup sweeps every interval until Stop.
func (m *Manager) StartCleanup(interval time.Duration) {
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := m.sweep(); n > 0 {
					m.logger.Debug("Expired view cache entries removed", "removed", n)
				}
			case <-m.stop:
				return
			}
		}
	}()
}

func (m *Manager) sweep() int {
	m.mu.Lock()
	caches := make([]Cleaner, 0, len(m.caches))
	for _, c := range m.caches {
		caches = append(caches, c)
	}
	m.mu.Unlock()

	removed := 0
	for _, c := range caches {
		removed += c.CleanExpired()
	}
	return removed
}

// Stop ends the sweep started by StartCleanup. It is safe to call more than
// once, and without StartCleanup having run.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}

// Wait blocks until the sweep started by StartCleanup has exited. Only
// call it after StartCleanup.
func (m *Manager) Wait() {
	<-m.done
}
