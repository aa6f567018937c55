// Package pnl builds the loss ranking that selects each cycle's recipient.
// Only tokens a wallet genuinely paid for count toward its cost basis;
// transfers, airdrops and reward mints carry no reserve-currency spend and
// are ignored.
package pnl

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lasthopeprotocol/hope-protocol/internal/observability"
	"github.com/lasthopeprotocol/hope-protocol/internal/solana"
)

const (
	// SwapWindowSize bounds the per-wallet activity scan.
	SwapWindowSize = 30

	// GasThresholdSOL separates a real reserve-currency spend from the
	// incidental network-fee debit every transaction carries.
	GasThresholdSOL = 0.001

	lamportsPerSOL = 1_000_000_000
)

// PurchaseTotals is a wallet's accumulated genuine-purchase history.
type PurchaseTotals struct {
	Bought float64 // tracked-mint UI units acquired through purchases
	Spent  float64 // SOL paid for those purchases
}

// HistorySource yields purchase history for a wallet.
type HistorySource interface {
	PurchaseHistory(ctx context.Context, wallet string) PurchaseTotals
}

// Analyzer classifies a wallet's recent ledger activity into genuine
// purchases versus everything else.
type Analyzer struct {
	rpc    solana.RPCClient
	mint   string
	window int
	log    zerolog.Logger
}

// NewAnalyzer creates an Analyzer for the tracked mint.
func NewAnalyzer(rpc solana.RPCClient, mint string, log zerolog.Logger) *Analyzer {
	return &Analyzer{rpc: rpc, mint: mint, window: SwapWindowSize, log: log}
}

var _ HistorySource = (*Analyzer)(nil)

// PurchaseHistory scans the wallet's most recent transactions and tallies
// genuine purchases of the tracked mint. A failed window fetch yields zero
// totals: an unreadable wallet is treated as having no purchase history
// and drops out of the ranking rather than aborting the cycle.
func (a *Analyzer) PurchaseHistory(ctx context.Context, wallet string) PurchaseTotals {
	sigs, err := a.rpc.GetSignaturesForAddress(ctx, wallet, &solana.SignaturesOpts{Limit: a.window})
	if err != nil {
		a.log.Debug().Err(err).Str("wallet", wallet).Msg("signature window fetch failed, excluding wallet")
		observability.RecordHistoryFailure()
		return PurchaseTotals{}
	}

	var totals PurchaseTotals
	for _, sig := range sigs {
		if sig.Err != nil {
			continue
		}

		tx, err := a.rpc.GetTransaction(ctx, sig.Signature)
		if err != nil || tx == nil || tx.Meta == nil || tx.Meta.Err != nil {
			// Unreadable or failed entries are skipped individually.
			continue
		}

		tokenDelta := a.tokenDelta(tx.Meta, wallet)
		reserveDelta := reserveDelta(tx, wallet)

		if tokenDelta > 0 && reserveDelta > GasThresholdSOL {
			totals.Bought += tokenDelta
			totals.Spent += reserveDelta
		}
	}

	return totals
}

// tokenDelta is the wallet's tracked-mint balance change in the transaction
// (post minus pre, UI units).
func (a *Analyzer) tokenDelta(meta *solana.TransactionMeta, wallet string) float64 {
	var pre, post float64
	for _, b := range meta.PreTokenBalances {
		if b.Owner == wallet && b.Mint == a.mint {
			pre += b.Amount
		}
	}
	for _, b := range meta.PostTokenBalances {
		if b.Owner == wallet && b.Mint == a.mint {
			post += b.Amount
		}
	}
	return post - pre
}

// reserveDelta is the SOL the wallet spent in the transaction (pre minus
// post of its own lamport balance). Inbound transfers produce a negative
// value and never classify as purchases.
func reserveDelta(tx *solana.Transaction, wallet string) float64 {
	if tx.Message == nil {
		return 0
	}

	idx := -1
	for i, key := range tx.Message.AccountKeys {
		if key == wallet {
			idx = i
			break
		}
	}
	if idx < 0 || idx >= len(tx.Meta.PreBalances) || idx >= len(tx.Meta.PostBalances) {
		return 0
	}

	pre := float64(tx.Meta.PreBalances[idx])
	post := float64(tx.Meta.PostBalances[idx])
	return (pre - post) / lamportsPerSOL
}
