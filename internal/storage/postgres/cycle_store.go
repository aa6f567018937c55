package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lasthopeprotocol/hope-protocol/internal/domain"
	"github.com/lasthopeprotocol/hope-protocol/internal/observability"
	"github.com/lasthopeprotocol/hope-protocol/internal/storage"
)

// observe reports query timing and failure to the metrics surface.
// A miss is an answer, not a query failure.
func observe(operation string, start time.Time, err error) {
	if isNotFoundError(err) {
		err = nil
	}
	observability.RecordDBQuery("postgres", operation, time.Since(start).Seconds(), err)
}

// CycleStore implements storage.CycleStore using PostgreSQL.
type CycleStore struct {
	pool *Pool
}

// NewCycleStore creates a new CycleStore.
func NewCycleStore(pool *Pool) *CycleStore {
	return &CycleStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CycleStore = (*CycleStore)(nil)

// Insert adds a cycle record. Returns ErrDuplicateKey if the cycle number exists.
func (s *CycleStore) Insert(ctx context.Context, r *domain.CycleRecord) error {
	query := `
		INSERT INTO cycles (
			cycle_number, outcome, recipient, pnl_at_selection, reserve_spent,
			tokens_sent, tokens_burned, send_signature, burn_signature, detail, timestamp_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		r.CycleNumber,
		string(r.Outcome),
		r.Recipient,
		r.PnLAtSelection,
		int64(r.ReserveSpent),
		int64(r.TokensSent),
		int64(r.TokensBurned),
		r.SendSignature,
		r.BurnSignature,
		r.Detail,
		r.Timestamp,
	)
	observe("insert_cycle", start, err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert cycle: %w", err)
	}
	return nil
}

// GetByCycle retrieves a record by cycle number. Returns ErrNotFound if not exists.
func (s *CycleStore) GetByCycle(ctx context.Context, cycleNumber int64) (*domain.CycleRecord, error) {
	query := `
		SELECT cycle_number, outcome, recipient, pnl_at_selection, reserve_spent,
		       tokens_sent, tokens_burned, send_signature, burn_signature, detail, timestamp_ms
		FROM cycles
		WHERE cycle_number = $1
	`

	start := time.Now()
	row := s.pool.QueryRow(ctx, query, cycleNumber)
	r, err := scanCycleRecord(row)
	observe("get_cycle", start, err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get cycle: %w", err)
	}
	return r, nil
}

// GetRecent retrieves up to limit records, newest first.
func (s *CycleStore) GetRecent(ctx context.Context, limit int) ([]*domain.CycleRecord, error) {
	query := `
		SELECT cycle_number, outcome, recipient, pnl_at_selection, reserve_spent,
		       tokens_sent, tokens_burned, send_signature, burn_signature, detail, timestamp_ms
		FROM cycles
		ORDER BY cycle_number DESC
		LIMIT $1
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, limit)
	observe("get_recent_cycles", start, err)
	if err != nil {
		return nil, fmt.Errorf("get recent cycles: %w", err)
	}
	defer rows.Close()

	var records []*domain.CycleRecord
	for rows.Next() {
		r, err := scanCycleRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cycle row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cycle rows: %w", err)
	}
	return records, nil
}

// LastCycleNumber returns the highest recorded cycle number.
func (s *CycleStore) LastCycleNumber(ctx context.Context) (int64, error) {
	var n int64
	start := time.Now()
	err := s.pool.QueryRow(ctx, `SELECT cycle_number FROM cycles ORDER BY cycle_number DESC LIMIT 1`).Scan(&n)
	observe("last_cycle_number", start, err)
	if err != nil {
		if isNotFoundError(err) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("last cycle number: %w", err)
	}
	return n, nil
}

// scanCycleRecord scans a single row into a CycleRecord.
func scanCycleRecord(row pgx.Row) (*domain.CycleRecord, error) {
	var r domain.CycleRecord
	var outcome string
	var reserveSpent, tokensSent, tokensBurned int64

	err := row.Scan(
		&r.CycleNumber,
		&outcome,
		&r.Recipient,
		&r.PnLAtSelection,
		&reserveSpent,
		&tokensSent,
		&tokensBurned,
		&r.SendSignature,
		&r.BurnSignature,
		&r.Detail,
		&r.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	r.Outcome = domain.CycleOutcome(outcome)
	r.ReserveSpent = uint64(reserveSpent)
	r.TokensSent = uint64(tokensSent)
	r.TokensBurned = uint64(tokensBurned)
	return &r, nil
}
