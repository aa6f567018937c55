package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/lasthopeprotocol/hope-protocol/internal/domain"
	"github.com/lasthopeprotocol/hope-protocol/internal/observability"
	"github.com/lasthopeprotocol/hope-protocol/internal/storage"
)

// HolderSnapshotStore implements storage.HolderSnapshotStore using ClickHouse.
type HolderSnapshotStore struct {
	conn *Conn
}

// NewHolderSnapshotStore creates a new HolderSnapshotStore.
func NewHolderSnapshotStore(conn *Conn) *HolderSnapshotStore {
	return &HolderSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.HolderSnapshotStore = (*HolderSnapshotStore)(nil)

// InsertBulk adds the ranked snapshot of one cycle.
func (s *HolderSnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.HolderSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	for _, snap := range snapshots {
		if snap == nil || snap.Wallet == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO holder_snapshots (
			cycle_number, rank, wallet, balance, swap_bought, swap_spent, pnl, timestamp_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snapshots {
		err = batch.Append(
			snap.CycleNumber, uint32(snap.Rank), snap.Wallet,
			snap.Balance, snap.SwapBought, snap.SwapSpent, snap.PnL,
			snap.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	start := time.Now()
	err = batch.Send()
	observability.RecordDBQuery("clickhouse", "insert_snapshots", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByCycle retrieves the snapshot for a cycle, ordered by rank ASC.
func (s *HolderSnapshotStore) GetByCycle(ctx context.Context, cycleNumber int64) ([]*domain.HolderSnapshot, error) {
	query := `
		SELECT cycle_number, rank, wallet, balance, swap_bought, swap_spent, pnl, timestamp_ms
		FROM holder_snapshots
		WHERE cycle_number = ?
		ORDER BY rank ASC
	`

	start := time.Now()
	rows, err := s.conn.Query(ctx, query, cycleNumber)
	observability.RecordDBQuery("clickhouse", "get_snapshots", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("query by cycle: %w", err)
	}
	defer rows.Close()

	var snapshots []*domain.HolderSnapshot
	for rows.Next() {
		var snap domain.HolderSnapshot
		var rank uint32

		err := rows.Scan(
			&snap.CycleNumber, &rank, &snap.Wallet,
			&snap.Balance, &snap.SwapBought, &snap.SwapSpent, &snap.PnL,
			&snap.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan holder snapshot row: %w", err)
		}

		snap.Rank = int(rank)
		snapshots = append(snapshots, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holder snapshot rows: %w", err)
	}

	return snapshots, nil
}
