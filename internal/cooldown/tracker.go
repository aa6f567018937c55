// Package cooldown tracks recent distribution winners so the same wallet
// cannot be selected again within the cooldown window.
package cooldown

import (
	"context"
	"sync"
)

// Cycles is the number of cycles a winner stays ineligible after its win.
// A wallet that wins cycle k is eligible again from cycle k+Cycles+1 on.
const Cycles = 2

// Tracker answers eligibility queries and records wins. Implementations
// must tolerate wallets that never won (always eligible).
type Tracker interface {
	// RecordWin marks the wallet as the winner of the given cycle.
	RecordWin(ctx context.Context, wallet string, cycle int64) error

	// IsEligible reports whether the wallet may win the given cycle.
	IsEligible(ctx context.Context, wallet string, cycle int64) (bool, error)
}

// MemoryTracker is the process-lifetime Tracker. Entries are never deleted;
// they age out naturally once the window passes. A restart resets all
// cooldowns.
type MemoryTracker struct {
	mu   sync.Mutex
	wins map[string]int64 // wallet -> cycle number won
}

// NewMemoryTracker creates an empty in-memory tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{wins: make(map[string]int64)}
}

var _ Tracker = (*MemoryTracker)(nil)

// RecordWin marks the wallet as the winner of the given cycle.
func (t *MemoryTracker) RecordWin(_ context.Context, wallet string, cycle int64) error {
	t.mu.Lock()
	t.wins[wallet] = cycle
	t.mu.Unlock()
	return nil
}

// IsEligible reports whether the wallet is outside its cooldown window.
func (t *MemoryTracker) IsEligible(_ context.Context, wallet string, cycle int64) (bool, error) {
	t.mu.Lock()
	won, ok := t.wins[wallet]
	t.mu.Unlock()

	if !ok {
		return true, nil
	}
	return cycle-won > Cycles, nil
}
