// Package repository holds finished session reports in memory, keyed by
// session id. Durable persistence is out of scope; the store bounds its
// memory by evicting the oldest report once over capacity.
package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/crux/internal/domain/model"
)

const defaultMaxReports = 10000

// Store provides access to finished reports.
type Store interface {
	// Put stores a report, replacing any previous one for the session.
	Put(ctx context.Context, report *model.SessionReport) error

	// Get returns the report for a session or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*model.SessionReport, error)

	// Delete removes a report. Removing an absent report is not an error.
	Delete(ctx context.Context, id uuid.UUID) error

	// Count returns the number of stored reports.
	Count(ctx context.Context) int
}

// MemoryStore implements Store with a mutex-guarded map plus an insertion
// order list for eviction.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[uuid.UUID]*model.SessionReport
	order   []uuid.UUID
	max     int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store with the configured capacity.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		reports: make(map[uuid.UUID]*model.SessionReport),
		max:     defaultMaxReports,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put stores a report.
func (s *MemoryStore) Put(ctx context.Context, report *model.SessionReport) error {
	if report == nil {
		return fmt.Errorf("put report: %w", ErrNilReport)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[report.SessionID]; !exists {
		s.order = append(s.order, report.SessionID)
	}
	s.reports[report.SessionID] = report

	for len(s.order) > s.max {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.reports, oldest)
	}
	return nil
}

// Get returns the report for a session.
func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*model.SessionReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	return report, nil
}

// Delete removes a report.
func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[id]; !ok {
		return nil
	}
	delete(s.reports, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Count returns the number of stored reports.
func (s *MemoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}
