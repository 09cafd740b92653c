// Package store provides the in-memory persistence backends. The service
// keeps analysis results and usage entries in process memory; both stores
// are safe for concurrent use.
package store

import (
	"context"
	"sync"

	"leafwise-server/internal/domain/analysis"
	"leafwise-server/internal/domain/usage"
)

// ResultStore is an in-memory analysis.ResultStore.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]*analysis.Result
}

var _ analysis.ResultStore = (*ResultStore)(nil)

// NewResultStore creates an empty result store.
func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string]*analysis.Result)}
}

// Create stores a completed result keyed by its ID.
func (s *ResultStore) Create(ctx context.Context, result *analysis.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *result
	s.results[result.ID] = &copied
	return nil
}

// Get returns a stored result or analysis.ErrResultNotFound.
func (s *ResultStore) Get(ctx context.Context, id string) (*analysis.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[id]
	if !ok {
		return nil, analysis.ErrResultNotFound
	}
	copied := *result
	return &copied, nil
}

// UsageStore is an in-memory usage.Store. Update serializes all mutations
// under one mutex so concurrent increments never lose writes.
type UsageStore struct {
	mu      sync.Mutex
	entries map[string]*usage.Entry
}

var _ usage.Store = (*UsageStore)(nil)

// NewUsageStore creates an empty usage store.
func NewUsageStore() *UsageStore {
	return &UsageStore{entries: make(map[string]*usage.Entry)}
}

// Get returns a copy of the user's entry, if any.
func (s *UsageStore) Get(ctx context.Context, userID string) (*usage.Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[userID]
	if !ok {
		return nil, false, nil
	}
	copied := *entry
	return &copied, true, nil
}

// Update applies fn to the user's entry under the store lock, creating the
// entry on first use.
func (s *UsageStore) Update(ctx context.Context, userID string, fn func(e *usage.Entry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[userID]
	if !ok {
		entry = &usage.Entry{UserID: userID}
		s.entries[userID] = entry
	}
	return fn(entry)
}
