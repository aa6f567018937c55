package storage

import (
	"context"

	"github.com/lasthopeprotocol/hope-protocol/internal/domain"
)

// CycleStore provides access to cycles storage.
type CycleStore interface {
	// Insert adds a cycle record. Returns ErrDuplicateKey if the cycle
	// number exists.
	Insert(ctx context.Context, r *domain.CycleRecord) error

	// GetByCycle retrieves a record by cycle number. Returns ErrNotFound
	// if not exists.
	GetByCycle(ctx context.Context, cycleNumber int64) (*domain.CycleRecord, error)

	// GetRecent retrieves up to limit records, newest first.
	GetRecent(ctx context.Context, limit int) ([]*domain.CycleRecord, error)

	// LastCycleNumber returns the highest recorded cycle number, or
	// ErrNotFound when no cycle has run yet.
	LastCycleNumber(ctx context.Context) (int64, error)
}

// HolderSnapshotStore provides access to holder_snapshots storage.
type HolderSnapshotStore interface {
	// InsertBulk adds the ranked snapshot of one cycle.
	InsertBulk(ctx context.Context, snapshots []*domain.HolderSnapshot) error

	// GetByCycle retrieves the snapshot for a cycle, ordered by rank ASC.
	GetByCycle(ctx context.Context, cycleNumber int64) ([]*domain.HolderSnapshot, error)
}

// WinStore provides access to distribution_wins storage, the durable
// backing for cooldown eligibility.
type WinStore interface {
	// RecordWin upserts the latest winning cycle for a wallet.
	RecordWin(ctx context.Context, wallet string, cycle int64) error

	// LastWin returns the most recent cycle the wallet won. Returns
	// ErrNotFound for a wallet that never won.
	LastWin(ctx context.Context, wallet string) (int64, error)
}
