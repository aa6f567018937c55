package domain

import "math"

// HolderRecord is the per-wallet loss profile derived fresh each cycle.
// Amounts are UI units of the tracked mint; costs and values are SOL.
type HolderRecord struct {
	Wallet            string
	Balance           float64
	SwapBought        float64 // cumulative amount acquired through genuine purchases
	SwapSpent         float64 // cumulative SOL cost of those purchases
	RetainedRatio     float64
	AdjustedCostBasis float64
	EffectiveBalance  float64
	CurrentValue      float64
	PnL               float64
}

// NewHolderRecord computes the derived fields from balance, purchase history
// and the current price. Callers must reject wallets with SwapBought <= 0
// before building a record; the ratio is undefined for them.
func NewHolderRecord(wallet string, balance, swapBought, swapSpent, price float64) HolderRecord {
	ratio := math.Min(1, balance/swapBought)
	adjusted := swapSpent * ratio
	effective := math.Min(balance, swapBought)
	value := effective * price

	return HolderRecord{
		Wallet:            wallet,
		Balance:           balance,
		SwapBought:        swapBought,
		SwapSpent:         swapSpent,
		RetainedRatio:     ratio,
		AdjustedCostBasis: adjusted,
		EffectiveBalance:  effective,
		CurrentValue:      value,
		PnL:               value - adjusted,
	}
}
