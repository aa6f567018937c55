package engine

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lasthopeprotocol/hope-protocol/internal/distribute"
	"github.com/lasthopeprotocol/hope-protocol/internal/domain"
	"github.com/lasthopeprotocol/hope-protocol/internal/fees"
	"github.com/lasthopeprotocol/hope-protocol/internal/holders"
	"github.com/lasthopeprotocol/hope-protocol/internal/jupiter"
	"github.com/lasthopeprotocol/hope-protocol/internal/solana"
	"github.com/lasthopeprotocol/hope-protocol/internal/solana/stub"
	"github.com/lasthopeprotocol/hope-protocol/internal/storage/memory"
)

type fakeScanner struct {
	holdings []holders.Holding
	err      error
}

func (f *fakeScanner) Scan(context.Context) ([]holders.Holding, error) {
	return f.holdings, f.err
}

type fakeRanker struct {
	records  []domain.HolderRecord
	err      error
	gotPrice float64
}

func (f *fakeRanker) Rank(_ context.Context, _ []holders.Holding, price float64, _ int64) ([]domain.HolderRecord, error) {
	f.gotPrice = price
	return f.records, f.err
}

type fakeClaimer struct {
	usable  uint64
	err     error
	calls   int
	onClaim func()
}

func (f *fakeClaimer) Claim(context.Context) (uint64, fees.State, error) {
	f.calls++
	if f.onClaim != nil {
		f.onClaim()
	}
	if f.err != nil {
		return 0, fees.Migrated, f.err
	}
	return f.usable, fees.Migrated, nil
}

type fakeAggregator struct {
	price    float64
	priceErr error
	quote    *jupiter.Quote
	quoteErr error
	swapTx   string
}

func (f *fakeAggregator) Price(context.Context, string) (float64, error) {
	return f.price, f.priceErr
}

func (f *fakeAggregator) GetQuote(ctx context.Context, _, _ string, _ uint64, _ int) (*jupiter.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.quote, f.quoteErr
}

func (f *fakeAggregator) BuildSwap(context.Context, *jupiter.Quote, string, uint64) (string, error) {
	return f.swapTx, nil
}

// fakeSubmitter lands the swap by writing the post-swap token account
// into the stub ledger.
type fakeSubmitter struct {
	rpc     *stub.RPCClient
	ata     string
	newData string
	err     error
	calls   int
}

func (f *fakeSubmitter) SubmitSignedBase64(ctx context.Context, _ string) (string, error) {
	f.calls++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.err != nil {
		return "", f.err
	}
	f.rpc.Accounts[f.ata] = &solana.AccountInfo{Owner: solana.TokenProgramID, Data: f.newData}
	return "sig-swap", nil
}

type fakeDistributor struct {
	result       *distribute.Result
	err          error
	gotRecipient string
	gotTotal     uint64
}

func (f *fakeDistributor) Execute(_ context.Context, recipient string, total uint64) (*distribute.Result, error) {
	f.gotRecipient = recipient
	f.gotTotal = total
	return f.result, f.err
}

func tokenAccountData(mint, owner solanago.PublicKey, amount uint64) string {
	data := make([]byte, 165)
	copy(data[0:32], mint.Bytes())
	copy(data[32:64], owner.Bytes())
	binary.LittleEndian.PutUint64(data[64:72], amount)
	return base64.StdEncoding.EncodeToString(data)
}

// harness bundles a fully wired engine over fakes.
type harness struct {
	engine      *Engine
	rpc         *stub.RPCClient
	scanner     *fakeScanner
	ranker      *fakeRanker
	claimer     *fakeClaimer
	aggregator  *fakeAggregator
	submitter   *fakeSubmitter
	distributor *fakeDistributor
	wins        *memory.WinStore
	cycles      *memory.CycleStore
	snapshots   *memory.HolderSnapshotStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	operator := solanago.NewWallet().PublicKey()
	mint := solanago.NewWallet().PublicKey()
	ata, _, err := solanago.FindAssociatedTokenAddress(operator, mint)
	require.NoError(t, err)

	rpc := stub.NewRPCClient()
	h := &harness{
		rpc: rpc,
		scanner: &fakeScanner{holdings: []holders.Holding{
			{Wallet: "wallet-a", Balance: 1000},
		}},
		ranker: &fakeRanker{records: []domain.HolderRecord{
			{Wallet: "wallet-a", Balance: 1000, SwapBought: 800, SwapSpent: 10, PnL: -6},
		}},
		claimer:    &fakeClaimer{usable: 500_000_000},
		aggregator: &fakeAggregator{price: 0.02, quote: &jupiter.Quote{OutAmount: 1_000_000}, swapTx: "dW5zaWduZWQ="},
		submitter: &fakeSubmitter{
			rpc:     rpc,
			ata:     ata.String(),
			newData: tokenAccountData(mint, operator, 1_000_000),
		},
		distributor: &fakeDistributor{result: &distribute.Result{
			ToSend:        500_000,
			ToBurn:        500_000,
			SendSignature: "sig-send",
			BurnSignature: "sig-burn",
		}},
		wins:      memory.NewWinStore(),
		cycles:    memory.NewCycleStore(),
		snapshots: memory.NewHolderSnapshotStore(),
	}

	h.engine = New(
		rpc, h.scanner, h.ranker, h.claimer, h.aggregator, h.submitter,
		h.distributor, h.wins, h.cycles, h.snapshots,
		Config{
			Mint:        mint.String(),
			Operator:    operator.String(),
			SlippageBps: 500,
		},
		zerolog.Nop(),
	)
	return h
}

func TestRunCycleCompleted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	record := h.engine.RunCycle(ctx, 1)

	assert.Equal(t, domain.OutcomeCompleted, record.Outcome)
	assert.Equal(t, "wallet-a", record.Recipient)
	assert.Equal(t, -6.0, record.PnLAtSelection)
	assert.Equal(t, uint64(500_000_000), record.ReserveSpent)
	assert.Equal(t, uint64(500_000), record.TokensSent)
	assert.Equal(t, uint64(500_000), record.TokensBurned)
	assert.Equal(t, "sig-send", record.SendSignature)
	assert.Equal(t, "sig-burn", record.BurnSignature)

	assert.Equal(t, "wallet-a", h.distributor.gotRecipient)
	assert.Equal(t, uint64(1_000_000), h.distributor.gotTotal, "balance delta drives the split")

	won, err := h.wins.LastWin(ctx, "wallet-a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), won)

	stored, err := h.cycles.GetByCycle(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCompleted, stored.Outcome)

	snaps, err := h.snapshots.GetByCycle(ctx, 1)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "wallet-a", snaps[0].Wallet)
	assert.Equal(t, 0, snaps[0].Rank)
}

func TestRunCycleNoEligibleHolder(t *testing.T) {
	h := newHarness(t)
	h.ranker.records = nil

	record := h.engine.RunCycle(context.Background(), 1)

	assert.Equal(t, domain.OutcomeSkipped, record.Outcome)
	assert.Equal(t, "no eligible holder", record.Detail)
	assert.Zero(t, h.claimer.calls, "no revenue claimed on skip")
}

func TestRunCycleBestNotAtLoss(t *testing.T) {
	h := newHarness(t)
	h.ranker.records = []domain.HolderRecord{{Wallet: "wallet-a", PnL: 3.2}}

	record := h.engine.RunCycle(context.Background(), 1)

	assert.Equal(t, domain.OutcomeSkipped, record.Outcome)
	assert.Zero(t, h.claimer.calls)
}

func TestRunCycleInsufficientRevenue(t *testing.T) {
	h := newHarness(t)
	h.claimer.err = fees.ErrInsufficient

	record := h.engine.RunCycle(context.Background(), 1)

	assert.Equal(t, domain.OutcomeSkipped, record.Outcome)
	assert.Equal(t, "insufficient claimable revenue", record.Detail)
	assert.Zero(t, h.submitter.calls, "nothing acquired")
}

func TestRunCycleZeroQuote(t *testing.T) {
	h := newHarness(t)
	h.aggregator.quote = &jupiter.Quote{OutAmount: 0}

	record := h.engine.RunCycle(context.Background(), 1)

	assert.Equal(t, domain.OutcomeSkipped, record.Outcome)
	assert.Equal(t, "acquisition produced no tokens", record.Detail)
	assert.Zero(t, h.submitter.calls)
}

func TestRunCycleSwapFailure(t *testing.T) {
	h := newHarness(t)
	h.submitter.err = errors.New("blockhash expired")

	record := h.engine.RunCycle(context.Background(), 1)

	assert.Equal(t, domain.OutcomeFailed, record.Outcome)
	assert.Equal(t, "wallet-a", record.Recipient)
	assert.Empty(t, h.distributor.gotRecipient, "nothing distributed")

	_, err := h.wins.LastWin(context.Background(), "wallet-a")
	assert.Error(t, err, "no win recorded on failure")
}

func TestRunCycleSwapConfirmedWithoutTokens(t *testing.T) {
	h := newHarness(t)
	// Submission succeeds but the ledger never shows new tokens.
	h.submitter.newData = tokenAccountData(solanago.NewWallet().PublicKey(), solanago.NewWallet().PublicKey(), 0)

	record := h.engine.RunCycle(context.Background(), 1)

	assert.Equal(t, domain.OutcomeFailed, record.Outcome)
	assert.Contains(t, record.Detail, "no tokens arrived")
}

func TestRunCyclePartialBurn(t *testing.T) {
	h := newHarness(t)
	h.distributor.result = &distribute.Result{
		ToSend:        500_000,
		ToBurn:        500_000,
		SendSignature: "sig-send",
	}
	h.distributor.err = distribute.ErrBurnFailed

	record := h.engine.RunCycle(context.Background(), 1)

	assert.Equal(t, domain.OutcomePartialBurn, record.Outcome)
	assert.Equal(t, uint64(500_000), record.TokensSent)
	assert.Zero(t, record.TokensBurned)
	assert.Empty(t, record.BurnSignature)

	// Holder still received tokens, so the cooldown applies.
	won, err := h.wins.LastWin(context.Background(), "wallet-a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), won)
}

func TestRunCycleScanFailure(t *testing.T) {
	h := newHarness(t)
	h.scanner.err = errors.New("rpc down")

	record := h.engine.RunCycle(context.Background(), 1)

	assert.Equal(t, domain.OutcomeFailed, record.Outcome)
	assert.Contains(t, record.Detail, "scan holders")

	stored, err := h.cycles.GetByCycle(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, stored.Outcome, "failed cycles are recorded too")
}

func TestRunCyclePriceFailureDegrades(t *testing.T) {
	h := newHarness(t)
	h.aggregator.priceErr = errors.New("price api down")

	record := h.engine.RunCycle(context.Background(), 1)

	assert.Equal(t, domain.OutcomeCompleted, record.Outcome)
	assert.Zero(t, h.ranker.gotPrice, "ranker sees a zero price")
}
