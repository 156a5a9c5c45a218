// Package memory holds reports in an in-process slice. Nothing is persisted.
package memory

import (
	"context"
	"sync"

	"github.com/couchcryptid/civic-report-service/internal/domain"
)

// Store is an append-only in-memory report sequence, safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	reports []domain.Report
}

// NewStore returns a store seeded with a copy of reports.
func NewStore(reports ...domain.Report) *Store {
	return &Store{reports: append([]domain.Report(nil), reports...)}
}

// LoadAll returns a copy of the stored reports in insertion order.
func (s *Store) LoadAll(_ context.Context) ([]domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Report, len(s.reports))
	copy(out, s.reports)
	return out, nil
}

// Append adds r to the end of the sequence.
func (s *Store) Append(_ context.Context, r domain.Report) (domain.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return r, nil
}

// Len returns the number of stored reports.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}
