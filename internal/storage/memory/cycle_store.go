package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/lasthopeprotocol/hope-protocol/internal/domain"
	"github.com/lasthopeprotocol/hope-protocol/internal/storage"
)

// CycleStore is an in-memory implementation of storage.CycleStore.
type CycleStore struct {
	mu   sync.RWMutex
	data map[int64]*domain.CycleRecord // keyed by cycle number
}

// NewCycleStore creates a new in-memory cycle store.
func NewCycleStore() *CycleStore {
	return &CycleStore{
		data: make(map[int64]*domain.CycleRecord),
	}
}

// Insert adds a cycle record. Returns ErrDuplicateKey if the cycle number exists.
func (s *CycleStore) Insert(_ context.Context, r *domain.CycleRecord) error {
	if r == nil || r.CycleNumber < 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.CycleNumber]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	recordCopy := *r
	s.data[r.CycleNumber] = &recordCopy
	return nil
}

// GetByCycle retrieves a record by cycle number. Returns ErrNotFound if not exists.
func (s *CycleStore) GetByCycle(_ context.Context, cycleNumber int64) (*domain.CycleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[cycleNumber]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recordCopy := *r
	return &recordCopy, nil
}

// GetRecent retrieves up to limit records, newest first.
func (s *CycleStore) GetRecent(_ context.Context, limit int) ([]*domain.CycleRecord, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.CycleRecord, 0, len(s.data))
	for _, r := range s.data {
		recordCopy := *r
		result = append(result, &recordCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CycleNumber > result[j].CycleNumber
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// LastCycleNumber returns the highest recorded cycle number.
func (s *CycleStore) LastCycleNumber(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.data) == 0 {
		return 0, storage.ErrNotFound
	}

	var max int64
	for n := range s.data {
		if n > max {
			max = n
		}
	}
	return max, nil
}

// Verify interface compliance at compile time.
var _ storage.CycleStore = (*CycleStore)(nil)
