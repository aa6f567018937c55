// Package engine runs the redistribution cycle: rank holders by realized
// loss, claim protocol revenue, acquire the tracked token and split it
// between the worst-off holder and destruction.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lasthopeprotocol/hope-protocol/internal/distribute"
	"github.com/lasthopeprotocol/hope-protocol/internal/domain"
	"github.com/lasthopeprotocol/hope-protocol/internal/fees"
	"github.com/lasthopeprotocol/hope-protocol/internal/holders"
	"github.com/lasthopeprotocol/hope-protocol/internal/jupiter"
	"github.com/lasthopeprotocol/hope-protocol/internal/observability"
	"github.com/lasthopeprotocol/hope-protocol/internal/solana"
	"github.com/lasthopeprotocol/hope-protocol/internal/storage"
)

// Scanner lists current holders of the tracked mint.
type Scanner interface {
	Scan(ctx context.Context) ([]holders.Holding, error)
}

// Ranker orders holders ascending by PnL.
type Ranker interface {
	Rank(ctx context.Context, holdings []holders.Holding, price float64, cycle int64) ([]domain.HolderRecord, error)
}

// Claimer turns accrued revenue into usable lamports.
type Claimer interface {
	Claim(ctx context.Context) (uint64, fees.State, error)
}

// Aggregator prices the mint and builds swap transactions.
type Aggregator interface {
	Price(ctx context.Context, mint string) (float64, error)
	GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*jupiter.Quote, error)
	BuildSwap(ctx context.Context, quote *jupiter.Quote, userPublicKey string, priorityFeeLamports uint64) (string, error)
}

// Distributor executes the send/destroy split.
type Distributor interface {
	Execute(ctx context.Context, recipient string, total uint64) (*distribute.Result, error)
}

// Submitter signs and lands externally built transactions.
type Submitter interface {
	SubmitSignedBase64(ctx context.Context, txBase64 string) (string, error)
}

// WinRecorder persists a wallet's win for cooldown purposes.
type WinRecorder interface {
	RecordWin(ctx context.Context, wallet string, cycle int64) error
}

// Config holds the engine's cycle parameters.
type Config struct {
	Mint                string
	Operator            string // operator public key, base58
	SlippageBps         int
	PriorityFeeLamports uint64
}

// Engine executes redistribution cycles. A cycle never propagates its
// failure to the caller: every outcome collapses into a CycleRecord.
type Engine struct {
	rpc        solana.RPCClient
	scanner    Scanner
	ranker     Ranker
	claimer    Claimer
	aggregator Aggregator
	submitter  Submitter
	executor   Distributor
	wins       WinRecorder
	cycles     storage.CycleStore
	snapshots  storage.HolderSnapshotStore

	cfg Config
	log zerolog.Logger
}

// New creates an Engine.
func New(
	rpc solana.RPCClient,
	scanner Scanner,
	ranker Ranker,
	claimer Claimer,
	aggregator Aggregator,
	submitter Submitter,
	executor Distributor,
	wins WinRecorder,
	cycles storage.CycleStore,
	snapshots storage.HolderSnapshotStore,
	cfg Config,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		rpc:        rpc,
		scanner:    scanner,
		ranker:     ranker,
		claimer:    claimer,
		aggregator: aggregator,
		submitter:  submitter,
		executor:   executor,
		wins:       wins,
		cycles:     cycles,
		snapshots:  snapshots,
		cfg:        cfg,
		log:        log,
	}
}

// RunCycle executes cycle number n end to end and persists its record.
// The returned record reports the outcome; RunCycle itself never fails.
func (e *Engine) RunCycle(ctx context.Context, n int64) *domain.CycleRecord {
	started := time.Now()
	log := e.log.With().Int64("cycle", n).Str("run_id", uuid.New().String()).Logger()
	log.Info().Msg("cycle started")

	record := e.runCycle(ctx, n, log)
	record.CycleNumber = n
	record.Timestamp = time.Now().UnixMilli()

	e.persistRecord(ctx, record, log)

	observability.RecordCycle(string(record.Outcome), time.Since(started).Seconds())
	completedAt := int64(0)
	if record.Outcome == domain.OutcomeCompleted {
		completedAt = time.Now().Unix()
	}
	observability.SetCycleProgress(n, completedAt)

	log.Info().
		Str("outcome", string(record.Outcome)).
		Str("recipient", record.Recipient).
		Str("detail", record.Detail).
		Dur("elapsed", time.Since(started)).
		Msg("cycle finished")
	return record
}

func (e *Engine) runCycle(ctx context.Context, n int64, log zerolog.Logger) *domain.CycleRecord {
	price, err := e.aggregator.Price(ctx, e.cfg.Mint)
	if err != nil {
		// Ranking degrades to biggest spender first on a zero price.
		log.Warn().Err(err).Msg("price unavailable, ranking by spend")
		price = 0
	}

	holdings, err := e.scanner.Scan(ctx)
	if err != nil {
		return failed("scan holders: " + err.Error())
	}

	ranked, err := e.ranker.Rank(ctx, holdings, price, n)
	if err != nil {
		return failed("rank holders: " + err.Error())
	}
	observability.UpdateHolderCounts(len(holdings), len(ranked))

	e.persistSnapshots(ctx, n, ranked, log)

	if len(ranked) == 0 {
		return skipped("no eligible holder")
	}

	best := ranked[0]
	if best.PnL >= 0 {
		return skipped("best-ranked holder is not at a loss")
	}
	log.Info().
		Str("wallet", best.Wallet).
		Float64("pnl", best.PnL).
		Float64("balance", best.Balance).
		Msg("holder selected")

	usable, state, err := e.claimer.Claim(ctx)
	if err != nil {
		if errors.Is(err, fees.ErrInsufficient) {
			return skipped("insufficient claimable revenue")
		}
		return failed("claim revenue: " + err.Error())
	}
	observability.RecordClaim(usable)
	log.Info().Uint64("lamports", usable).Str("state", string(state)).Msg("revenue claimed")

	acquired, err := e.acquire(ctx, usable, log)
	if err != nil {
		record := failed("acquire tokens: " + err.Error())
		record.Recipient = best.Wallet
		record.PnLAtSelection = best.PnL
		return record
	}
	if acquired == 0 {
		return skipped("acquisition produced no tokens")
	}

	record := &domain.CycleRecord{
		Recipient:      best.Wallet,
		PnLAtSelection: best.PnL,
		ReserveSpent:   usable,
	}

	result, err := e.executor.Execute(ctx, best.Wallet, acquired)
	switch {
	case err == nil:
		record.Outcome = domain.OutcomeCompleted
	case errors.Is(err, distribute.ErrBurnFailed):
		record.Outcome = domain.OutcomePartialBurn
		record.Detail = err.Error()
	default:
		record.Outcome = domain.OutcomeFailed
		record.Detail = "distribute: " + err.Error()
		return record
	}

	record.TokensSent = result.ToSend
	record.SendSignature = result.SendSignature
	if result.BurnSignature != "" {
		record.TokensBurned = result.ToBurn
		record.BurnSignature = result.BurnSignature
	}
	observability.RecordDistribution(usable, record.TokensSent, record.TokensBurned)

	// The holder received tokens, so the cooldown applies even when the
	// burn leg did not land.
	if err := e.wins.RecordWin(ctx, best.Wallet, n); err != nil {
		log.Error().Err(err).Str("wallet", best.Wallet).Msg("recording win failed")
	}

	return record
}

// acquire swaps the usable lamports into the tracked token and reports
// how many raw units actually arrived. The balance delta is authoritative:
// a swap whose effect cannot be observed counts as zero.
func (e *Engine) acquire(ctx context.Context, lamports uint64, log zerolog.Logger) (uint64, error) {
	before, err := e.operatorTokenBalance(ctx)
	if err != nil {
		return 0, fmt.Errorf("read token balance: %w", err)
	}

	quote, err := e.aggregator.GetQuote(ctx, jupiter.WSOLMint, e.cfg.Mint, lamports, e.cfg.SlippageBps)
	if err != nil {
		return 0, fmt.Errorf("quote: %w", err)
	}
	if quote.OutAmount == 0 {
		return 0, nil
	}

	swapTx, err := e.aggregator.BuildSwap(ctx, quote, e.cfg.Operator, e.cfg.PriorityFeeLamports)
	if err != nil {
		return 0, fmt.Errorf("build swap: %w", err)
	}

	sig, err := e.submitter.SubmitSignedBase64(ctx, swapTx)
	if err != nil {
		return 0, fmt.Errorf("submit swap: %w", err)
	}

	after, err := e.operatorTokenBalance(ctx)
	if err != nil {
		return 0, fmt.Errorf("read token balance after swap: %w", err)
	}
	if after <= before {
		return 0, fmt.Errorf("swap %s confirmed but no tokens arrived", sig)
	}

	acquired := after - before
	log.Info().Uint64("acquired", acquired).Uint64("quoted", quote.OutAmount).
		Str("signature", sig).Msg("tokens acquired")
	return acquired, nil
}

// operatorTokenBalance reads the operator's associated token account for
// the tracked mint. A missing account is a zero balance.
func (e *Engine) operatorTokenBalance(ctx context.Context) (uint64, error) {
	operator, err := solanago.PublicKeyFromBase58(e.cfg.Operator)
	if err != nil {
		return 0, fmt.Errorf("parse operator: %w", err)
	}
	mint, err := solanago.PublicKeyFromBase58(e.cfg.Mint)
	if err != nil {
		return 0, fmt.Errorf("parse mint: %w", err)
	}

	ata, _, err := solanago.FindAssociatedTokenAddress(operator, mint)
	if err != nil {
		return 0, fmt.Errorf("derive token account: %w", err)
	}

	info, err := e.rpc.GetAccountInfo(ctx, ata.String())
	if err != nil {
		return 0, err
	}
	if info == nil {
		return 0, nil
	}

	acct, err := solana.ParseTokenAccount(info.Data)
	if err != nil {
		return 0, fmt.Errorf("parse token account: %w", err)
	}
	return acct.Amount, nil
}

func (e *Engine) persistSnapshots(ctx context.Context, n int64, ranked []domain.HolderRecord, log zerolog.Logger) {
	if len(ranked) == 0 {
		return
	}

	now := time.Now().UnixMilli()
	snapshots := make([]*domain.HolderSnapshot, 0, len(ranked))
	for i, r := range ranked {
		snapshots = append(snapshots, &domain.HolderSnapshot{
			CycleNumber: n,
			Rank:        i,
			Wallet:      r.Wallet,
			Balance:     r.Balance,
			SwapBought:  r.SwapBought,
			SwapSpent:   r.SwapSpent,
			PnL:         r.PnL,
			Timestamp:   now,
		})
	}

	// Snapshots are analytics; their loss never blocks redistribution.
	if err := e.snapshots.InsertBulk(ctx, snapshots); err != nil {
		log.Error().Err(err).Msg("persisting holder snapshots failed")
	}
}

func (e *Engine) persistRecord(ctx context.Context, record *domain.CycleRecord, log zerolog.Logger) {
	if record.Outcome == domain.OutcomeSkipped {
		observability.RecordSkip(record.Detail)
	}
	if err := e.cycles.Insert(ctx, record); err != nil {
		log.Error().Err(err).Msg("persisting cycle record failed")
	}
}

func skipped(detail string) *domain.CycleRecord {
	return &domain.CycleRecord{Outcome: domain.OutcomeSkipped, Detail: detail}
}

func failed(detail string) *domain.CycleRecord {
	return &domain.CycleRecord{Outcome: domain.OutcomeFailed, Detail: detail}
}
