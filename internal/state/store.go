// Package state holds the dashboard's view of the backend: one immutable
// snapshot of bills, reference configuration and locations, replaced
// wholesale on every reload.
package state

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"billtracker/internal/core"
	"billtracker/internal/log"
	"billtracker/internal/store"
)

// Source is the part of a backend the store reads from.
type Source interface {
	ListBills(ctx context.Context) ([]core.Bill, error)
	GetConfig(ctx context.Context) (core.Configuration, error)
	ListLocations(ctx context.Context) ([]string, error)
}

// Snapshot is an immutable copy of the loaded data. Callers must not modify
// the slices or maps it holds.
type Snapshot struct {
	Version   uint64
	Bills     []core.Bill
	Config    core.Configuration
	Locations []string
	LoadedAt  time.Time
	// Warnings carries backend-reported errors that made a collection fall
	// back to empty.
	Warnings []string
}

// Loaded reports whether the snapshot came from a successful reload.
func (s Snapshot) Loaded() bool {
	return !s.LoadedAt.IsZero()
}

// Bill returns the bill with the given serial number.
func (s Snapshot) Bill(serialNo int) (core.Bill, bool) {
	i := slices.IndexFunc(s.Bills, func(b core.Bill) bool { return b.SerialNo == serialNo })
	if i < 0 {
		return core.Bill{}, false
	}
	return s.Bills[i], true
}

// Store is the single producer of snapshots.
type Store struct {
	source Source
	logger *log.Logger
	now    func() time.Time

	mu          sync.RWMutex
	snap        Snapshot
	nextID      int
	subscribers map[int]func(Snapshot)

	reloadMu sync.Mutex
}

// New creates an empty store reading from source.
func New(source Source, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Store{
		source:      source,
		logger:      logger.WithComponent(log.ComponentState),
		now:         time.Now,
		subscribers: make(map[int]func(Snapshot)),
	}
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Subscribe registers fn to be called after every snapshot swap. The returned
// func removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Reload fetches bills, configuration and locations concurrently and swaps
// the snapshot. A backend-reported error empties only the affected
// collection. ErrUnauthorized clears the snapshot and is returned; any other
// failure leaves the current snapshot in place.
func (s *Store) Reload(ctx context.Context) (Snapshot, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := s.now()
	var (
		bills     []core.Bill
		cfg       core.Configuration
		locations []string
		warnMu    sync.Mutex
		warnings  []string
	)
	// fallback turns a backend business error into an empty collection.
	fallback := func(what string, err error) error {
		var apiErr *store.APIError
		if errors.As(err, &apiErr) {
			s.logger.WarnContext(ctx, "Backend error, using empty "+what,
				log.FieldOperation, log.OpReload,
				log.FieldError, apiErr.Message)
			warnMu.Lock()
			warnings = append(warnings, apiErr.Message)
			warnMu.Unlock()
			return nil
		}
		return fmt.Errorf("load %s: %w", what, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := s.source.ListBills(gctx)
		if err != nil {
			return fallback("bills", err)
		}
		bills = out
		return nil
	})
	g.Go(func() error {
		out, err := s.source.GetConfig(gctx)
		if err != nil {
			return fallback("configuration", err)
		}
		cfg = out
		return nil
	})
	g.Go(func() error {
		out, err := s.source.ListLocations(gctx)
		if err != nil {
			return fallback("locations", err)
		}
		locations = out
		return nil
	})

	if err := g.Wait(); err != nil {
		if store.IsUnauthorized(err) {
			s.logger.WarnContext(ctx, "Session expired during reload, clearing state",
				log.FieldOperation, log.OpReload)
			s.Clear()
			return s.Snapshot(), store.ErrUnauthorized
		}
		s.logger.ErrorContext(ctx, "Reload failed",
			log.FieldOperation, log.OpReload,
			log.FieldError, err)
		return s.Snapshot(), err
	}

	normalized := make([]core.Bill, len(bills))
	for i, b := range bills {
		normalized[i] = b.Normalize()
	}
	if locations == nil {
		locations = []string{}
	}

	snap := s.swap(Snapshot{
		Bills:     normalized,
		Config:    core.BuildNetworkConfigFromBills(normalized, cfg).Normalize(),
		Locations: locations,
		LoadedAt:  s.now(),
		Warnings:  warnings,
	})
	s.logger.InfoContext(ctx, "State reloaded",
		log.FieldOperation, log.OpReload,
		log.FieldVersion, snap.Version,
		log.FieldBillCount, len(snap.Bills),
		log.FieldDuration, s.now().Sub(start).Milliseconds())
	return snap, nil
}

// Clear replaces the snapshot with an empty one, as after a logout.
func (s *Store) Clear() {
	s.swap(Snapshot{
		Bills:     []core.Bill{},
		Locations: []string{},
	})
}

// swap installs next with a new version and notifies subscribers outside the
// lock.
func (s *Store) swap(next Snapshot) Snapshot {
	s.mu.Lock()
	next.Version = s.snap.Version + 1
	s.snap = next
	subs := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return next
}
