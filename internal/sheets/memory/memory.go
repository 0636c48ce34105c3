// Package memory keeps mirrored reports in process, for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"billtracker/internal/export"
)

type Store struct {
	mu     sync.Mutex
	tabs   map[string][][]any
	writes int
}

func New() *Store {
	return &Store{tabs: map[string][][]any{}}
}

// WriteReport replaces every tab named in the report and drops the export
// tabs the report no longer has.
func (s *Store) WriteReport(_ context.Context, r export.Report) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range []string{export.BillsSheet, export.AnalyticsSheet} {
		if _, ok := r.Sheet(name); !ok {
			delete(s.tabs, name)
		}
	}
	for _, sh := range r.Sheets {
		s.tabs[sh.Name] = sh.Values()
	}
	s.writes++
	return fmt.Sprintf("mem:%d", s.writes), nil
}

// Tab returns a copy of the rows last written to name, header included.
func (s *Store) Tab(name string) [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]any(nil), s.tabs[name]...)
}

// Writes counts the reports written so far.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
