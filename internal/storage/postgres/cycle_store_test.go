package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lasthopeprotocol/hope-protocol/internal/domain"
	"github.com/lasthopeprotocol/hope-protocol/internal/storage"
)

func TestCycleStoreInsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCycleStore(pool)
	ctx := context.Background()

	record := &domain.CycleRecord{
		CycleNumber:    1,
		Outcome:        domain.OutcomeCompleted,
		Recipient:      "wallet-a",
		PnLAtSelection: -2.75,
		ReserveSpent:   750_000_000,
		TokensSent:     123_456,
		TokensBurned:   123_457,
		SendSignature:  "sig-send",
		BurnSignature:  "sig-burn",
		Timestamp:      1700000000000,
	}
	require.NoError(t, store.Insert(ctx, record))

	got, err := store.GetByCycle(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, record, got)
}

func TestCycleStoreDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCycleStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &domain.CycleRecord{CycleNumber: 1, Outcome: domain.OutcomeSkipped}))
	err := store.Insert(ctx, &domain.CycleRecord{CycleNumber: 1, Outcome: domain.OutcomeSkipped})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestCycleStoreNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCycleStore(pool)

	_, err := store.GetByCycle(context.Background(), 404)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCycleStoreGetRecentAndLast(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCycleStore(pool)
	ctx := context.Background()

	_, err := store.LastCycleNumber(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	for i := int64(1); i <= 4; i++ {
		require.NoError(t, store.Insert(ctx, &domain.CycleRecord{
			CycleNumber: i,
			Outcome:     domain.OutcomeSkipped,
			Timestamp:   1700000000000 + i,
		}))
	}

	recent, err := store.GetRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(4), recent[0].CycleNumber)
	assert.Equal(t, int64(3), recent[1].CycleNumber)

	last, err := store.LastCycleNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), last)
}
