package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lasthopeprotocol/hope-protocol/internal/storage"
)

// WinStore implements storage.WinStore using PostgreSQL.
type WinStore struct {
	pool *Pool
}

// NewWinStore creates a new WinStore.
func NewWinStore(pool *Pool) *WinStore {
	return &WinStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WinStore = (*WinStore)(nil)

// RecordWin upserts the latest winning cycle for a wallet.
func (s *WinStore) RecordWin(ctx context.Context, wallet string, cycle int64) error {
	if wallet == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO distribution_wins (wallet, cycle_number)
		VALUES ($1, $2)
		ON CONFLICT (wallet) DO UPDATE
		SET cycle_number = EXCLUDED.cycle_number, updated_at = now()
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query, wallet, cycle)
	observe("record_win", start, err)
	if err != nil {
		return fmt.Errorf("record win: %w", err)
	}
	return nil
}

// LastWin returns the most recent cycle the wallet won.
func (s *WinStore) LastWin(ctx context.Context, wallet string) (int64, error) {
	var cycle int64
	start := time.Now()
	err := s.pool.QueryRow(ctx,
		`SELECT cycle_number FROM distribution_wins WHERE wallet = $1`, wallet,
	).Scan(&cycle)
	observe("last_win", start, err)
	if err != nil {
		if isNotFoundError(err) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("last win: %w", err)
	}
	return cycle, nil
}
