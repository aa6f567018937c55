package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/lasthopeprotocol/hope-protocol/internal/domain"
	"github.com/lasthopeprotocol/hope-protocol/internal/storage"
)

// HolderSnapshotStore is an in-memory implementation of storage.HolderSnapshotStore.
type HolderSnapshotStore struct {
	mu   sync.RWMutex
	data map[int64][]*domain.HolderSnapshot // keyed by cycle number
}

// NewHolderSnapshotStore creates a new in-memory snapshot store.
func NewHolderSnapshotStore() *HolderSnapshotStore {
	return &HolderSnapshotStore{
		data: make(map[int64][]*domain.HolderSnapshot),
	}
}

// InsertBulk adds the ranked snapshot of one cycle.
func (s *HolderSnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.HolderSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	for _, snap := range snapshots {
		if snap == nil || snap.Wallet == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range snapshots {
		snapCopy := *snap
		s.data[snap.CycleNumber] = append(s.data[snap.CycleNumber], &snapCopy)
	}
	return nil
}

// GetByCycle retrieves the snapshot for a cycle, ordered by rank ASC.
func (s *HolderSnapshotStore) GetByCycle(_ context.Context, cycleNumber int64) ([]*domain.HolderSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.HolderSnapshot
	for _, snap := range s.data[cycleNumber] {
		snapCopy := *snap
		result = append(result, &snapCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Rank < result[j].Rank
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.HolderSnapshotStore = (*HolderSnapshotStore)(nil)
