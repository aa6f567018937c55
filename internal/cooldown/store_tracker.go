package cooldown

import (
	"context"
	"errors"

	"github.com/lasthopeprotocol/hope-protocol/internal/storage"
)

// StoreTracker is a Tracker backed by a durable storage.WinStore, so
// cooldowns survive process restarts.
type StoreTracker struct {
	store storage.WinStore
}

// NewStoreTracker creates a Tracker over the given win store.
func NewStoreTracker(store storage.WinStore) *StoreTracker {
	return &StoreTracker{store: store}
}

var _ Tracker = (*StoreTracker)(nil)

// RecordWin marks the wallet as the winner of the given cycle.
func (t *StoreTracker) RecordWin(ctx context.Context, wallet string, cycle int64) error {
	return t.store.RecordWin(ctx, wallet, cycle)
}

// IsEligible reports whether the wallet is outside its cooldown window.
func (t *StoreTracker) IsEligible(ctx context.Context, wallet string, cycle int64) (bool, error) {
	won, err := t.store.LastWin(ctx, wallet)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return true, nil
		}
		return false, err
	}
	return cycle-won > Cycles, nil
}
