package pnl

import (
	"context"
	"fmt"
	"sort"

	"github.com/lasthopeprotocol/hope-protocol/internal/cooldown"
	"github.com/lasthopeprotocol/hope-protocol/internal/domain"
	"github.com/lasthopeprotocol/hope-protocol/internal/holders"
)

// MinValueSOL is the de-minimis floor: positions currently worth less are
// not worth a distribution and are dropped from the ranking.
const MinValueSOL = 0.001

// Ranker orders eligible holders by loss, worst first.
type Ranker struct {
	history   HistorySource
	exclusion *holders.ExclusionPolicy
	tracker   cooldown.Tracker
}

// NewRanker creates a Ranker over the given collaborators.
func NewRanker(history HistorySource, exclusion *holders.ExclusionPolicy, tracker cooldown.Tracker) *Ranker {
	return &Ranker{history: history, exclusion: exclusion, tracker: tracker}
}

// Rank produces HolderRecords sorted ascending by PnL (most negative
// first). Ties keep scan order. A zero price is a valid degraded input:
// every current value collapses to zero and the ranking falls back to
// biggest historical spender first.
//
// Dropped along the way: non-positive balances, excluded addresses,
// wallets with no genuine purchase history, positions below the
// de-minimis floor, and wallets still on cooldown.
func (r *Ranker) Rank(ctx context.Context, holdings []holders.Holding, price float64, cycle int64) ([]domain.HolderRecord, error) {
	records := make([]domain.HolderRecord, 0, len(holdings))

	for _, h := range holdings {
		if h.Balance <= 0 || r.exclusion.Excluded(h.Wallet) {
			continue
		}

		totals := r.history.PurchaseHistory(ctx, h.Wallet)
		if totals.Bought <= 0 || totals.Spent <= 0 {
			// Paid nothing, lost nothing.
			continue
		}

		record := domain.NewHolderRecord(h.Wallet, h.Balance, totals.Bought, totals.Spent, price)

		if price > 0 && record.CurrentValue < MinValueSOL {
			continue
		}

		eligible, err := r.tracker.IsEligible(ctx, h.Wallet, cycle)
		if err != nil {
			return nil, fmt.Errorf("cooldown check for %s: %w", h.Wallet, err)
		}
		if !eligible {
			continue
		}

		records = append(records, record)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].PnL < records[j].PnL
	})

	return records, nil
}
