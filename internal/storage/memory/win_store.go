package memory

import (
	"context"
	"sync"

	"github.com/lasthopeprotocol/hope-protocol/internal/storage"
)

// WinStore is an in-memory implementation of storage.WinStore.
type WinStore struct {
	mu   sync.RWMutex
	data map[string]int64 // wallet -> latest winning cycle
}

// NewWinStore creates a new in-memory win store.
func NewWinStore() *WinStore {
	return &WinStore{
		data: make(map[string]int64),
	}
}

// RecordWin upserts the latest winning cycle for a wallet.
func (s *WinStore) RecordWin(_ context.Context, wallet string, cycle int64) error {
	if wallet == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[wallet] = cycle
	return nil
}

// LastWin returns the most recent cycle the wallet won.
func (s *WinStore) LastWin(_ context.Context, wallet string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cycle, exists := s.data[wallet]
	if !exists {
		return 0, storage.ErrNotFound
	}
	return cycle, nil
}

// Verify interface compliance at compile time.
var _ storage.WinStore = (*WinStore)(nil)
