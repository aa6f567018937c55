package holders

import (
	"context"
	"fmt"
	"math"

	"github.com/lasthopeprotocol/hope-protocol/internal/solana"
)

// Holding is one wallet's aggregate position in the tracked mint.
type Holding struct {
	Wallet  string
	Balance float64 // UI units
}

// Scanner finds current holders of a mint through a program-account scan.
type Scanner struct {
	rpc      solana.RPCClient
	mint     string
	decimals int
}

// NewScanner creates a Scanner for the given mint.
func NewScanner(rpc solana.RPCClient, mint string, decimals int) *Scanner {
	return &Scanner{rpc: rpc, mint: mint, decimals: decimals}
}

// Scan returns one Holding per wallet with a positive balance. A wallet
// owning several token accounts for the mint is aggregated into one entry.
// Order is the ledger's scan order, which downstream ranking preserves for
// ties.
func (s *Scanner) Scan(ctx context.Context) ([]Holding, error) {
	accounts, err := s.rpc.GetTokenAccountsByMint(ctx, s.mint)
	if err != nil {
		return nil, fmt.Errorf("scan token accounts: %w", err)
	}

	divisor := math.Pow(10, float64(s.decimals))

	index := make(map[string]int, len(accounts))
	holdings := make([]Holding, 0, len(accounts))
	for _, acct := range accounts {
		if acct.Amount == 0 || acct.Owner == "" {
			continue
		}
		ui := float64(acct.Amount) / divisor
		if i, ok := index[acct.Owner]; ok {
			holdings[i].Balance += ui
			continue
		}
		index[acct.Owner] = len(holdings)
		holdings = append(holdings, Holding{Wallet: acct.Owner, Balance: ui})
	}

	return holdings, nil
}
