package pnl

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/lasthopeprotocol/hope-protocol/internal/observability"
	"github.com/lasthopeprotocol/hope-protocol/internal/solana"
	"github.com/lasthopeprotocol/hope-protocol/internal/solana/stub"
)

const testMint = "E5Z7yTy4q1wzLxosdMjKA1s528XvM7SLCs5AgCFPq2cu"

// purchaseTx builds a transaction in which wallet gains tokenGain of the
// mint and spends spendSOL from its lamport balance.
func purchaseTx(sig, wallet string, tokenGain, spendSOL float64) *solana.Transaction {
	preLamports := uint64(5 * lamportsPerSOL)
	postLamports := preLamports - uint64(spendSOL*lamportsPerSOL)

	return &solana.Transaction{
		Signature: sig,
		Slot:      100,
		Meta: &solana.TransactionMeta{
			PreBalances:  []uint64{preLamports, 0},
			PostBalances: []uint64{postLamports, 0},
			PreTokenBalances: []solana.TokenBalance{
				{AccountIndex: 2, Mint: testMint, Owner: wallet, Amount: 0},
			},
			PostTokenBalances: []solana.TokenBalance{
				{AccountIndex: 2, Mint: testMint, Owner: wallet, Amount: tokenGain},
			},
		},
		Message: &solana.TransactionMessage{AccountKeys: []string{wallet, "pool"}},
	}
}

func TestAnalyzer_CountsGenuinePurchases(t *testing.T) {
	rpc := stub.NewRPCClient()
	wallet := "buyer"

	rpc.AddSignatures(wallet, []solana.SignatureInfo{
		{Signature: "buy1"},
		{Signature: "buy2"},
	})
	rpc.AddTransaction(purchaseTx("buy1", wallet, 1000, 0.5))
	rpc.AddTransaction(purchaseTx("buy2", wallet, 500, 0.25))

	analyzer := NewAnalyzer(rpc, testMint, zerolog.Nop())

	totals := analyzer.PurchaseHistory(context.Background(), wallet)

	if totals.Bought != 1500 {
		t.Errorf("expected bought 1500, got %f", totals.Bought)
	}
	if totals.Spent != 0.75 {
		t.Errorf("expected spent 0.75, got %f", totals.Spent)
	}
}

func TestAnalyzer_IgnoresTransfersIn(t *testing.T) {
	rpc := stub.NewRPCClient()
	wallet := "receiver"

	// Token inflow with only a network-fee-sized lamport debit.
	tx := purchaseTx("transfer1", wallet, 10_000, 0.000005)
	rpc.AddSignatures(wallet, []solana.SignatureInfo{{Signature: "transfer1"}})
	rpc.AddTransaction(tx)

	analyzer := NewAnalyzer(rpc, testMint, zerolog.Nop())

	totals := analyzer.PurchaseHistory(context.Background(), wallet)

	if totals.Bought != 0 || totals.Spent != 0 {
		t.Errorf("transfer-in must not count as purchase, got %+v", totals)
	}
}

func TestAnalyzer_IgnoresSales(t *testing.T) {
	rpc := stub.NewRPCClient()
	wallet := "seller"

	// Token outflow with lamports coming back: tokenDelta < 0.
	tx := &solana.Transaction{
		Signature: "sell1",
		Meta: &solana.TransactionMeta{
			PreBalances:  []uint64{1 * lamportsPerSOL},
			PostBalances: []uint64{2 * lamportsPerSOL},
			PreTokenBalances: []solana.TokenBalance{
				{Mint: testMint, Owner: wallet, Amount: 800},
			},
			PostTokenBalances: []solana.TokenBalance{
				{Mint: testMint, Owner: wallet, Amount: 0},
			},
		},
		Message: &solana.TransactionMessage{AccountKeys: []string{wallet}},
	}
	rpc.AddSignatures(wallet, []solana.SignatureInfo{{Signature: "sell1"}})
	rpc.AddTransaction(tx)

	analyzer := NewAnalyzer(rpc, testMint, zerolog.Nop())

	totals := analyzer.PurchaseHistory(context.Background(), wallet)

	if totals.Bought != 0 || totals.Spent != 0 {
		t.Errorf("sale must not count as purchase, got %+v", totals)
	}
}

func TestAnalyzer_SkipsFailedAndMissingEntries(t *testing.T) {
	rpc := stub.NewRPCClient()
	wallet := "buyer"

	rpc.AddSignatures(wallet, []solana.SignatureInfo{
		{Signature: "failed", Err: map[string]interface{}{"InstructionError": 0}},
		{Signature: "missing"}, // no transaction in the stub
		{Signature: "good"},
	})
	rpc.AddTransaction(purchaseTx("good", wallet, 100, 0.1))

	analyzer := NewAnalyzer(rpc, testMint, zerolog.Nop())

	totals := analyzer.PurchaseHistory(context.Background(), wallet)

	if totals.Bought != 100 {
		t.Errorf("expected only the good entry counted, got %+v", totals)
	}
}

func TestAnalyzer_WindowFetchFailureYieldsZero(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.FailSignaturesFor["opaque"] = true

	analyzer := NewAnalyzer(rpc, testMint, zerolog.Nop())

	before := testutil.ToFloat64(observability.DefaultMetrics.HistoryFailures)
	totals := analyzer.PurchaseHistory(context.Background(), "opaque")

	if totals.Bought != 0 || totals.Spent != 0 {
		t.Errorf("fetch failure must degrade to empty history, got %+v", totals)
	}
	if got := testutil.ToFloat64(observability.DefaultMetrics.HistoryFailures); got != before+1 {
		t.Errorf("history failure counter = %v, want %v", got, before+1)
	}
}

func TestAnalyzer_IgnoresOtherMints(t *testing.T) {
	rpc := stub.NewRPCClient()
	wallet := "buyer"

	tx := purchaseTx("other1", wallet, 1000, 0.5)
	tx.Meta.PreTokenBalances[0].Mint = "some-other-mint"
	tx.Meta.PostTokenBalances[0].Mint = "some-other-mint"

	rpc.AddSignatures(wallet, []solana.SignatureInfo{{Signature: "other1"}})
	rpc.AddTransaction(tx)

	analyzer := NewAnalyzer(rpc, testMint, zerolog.Nop())

	totals := analyzer.PurchaseHistory(context.Background(), wallet)

	if totals.Bought != 0 {
		t.Errorf("purchase of a different mint must not count, got %+v", totals)
	}
}
