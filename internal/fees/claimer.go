// Package fees turns accrued protocol revenue into a usable SOL amount.
package fees

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"

	"github.com/lasthopeprotocol/hope-protocol/internal/solana"
	"github.com/lasthopeprotocol/hope-protocol/internal/wallet"
)

// DefaultCurveProgramID is the bonding-curve program revenue accrues under
// before migration.
const DefaultCurveProgramID = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

// ErrInsufficient signals that the usable amount is below the configured
// minimum and the cycle should skip instead of proceeding with dust.
var ErrInsufficient = errors.New("claimable revenue below minimum")

// State is where accrued revenue currently resides. Re-evaluated every
// cycle; migration is one-way and externally triggered.
type State string

const (
	// CurveActive: the bonding-curve account still exists; fees must be
	// withdrawn from the program-controlled vault.
	CurveActive State = "CURVE_ACTIVE"
	// Migrated: the curve is gone and revenue accrues directly to the
	// operator account.
	Migrated State = "MIGRATED"
)

// Claimer resolves the accrual state and produces the usable SOL amount
// for a cycle.
type Claimer struct {
	rpc        solana.RPCClient
	submitter  *wallet.Submitter
	mint       string
	programID  string
	gasReserve uint64 // lamports kept back for transaction fees
	minClaim   uint64 // lamports below which the cycle skips
	log        zerolog.Logger
}

// Config for a Claimer.
type Config struct {
	Mint       string
	ProgramID  string // defaults to DefaultCurveProgramID
	GasReserve uint64
	MinClaim   uint64
}

// NewClaimer creates a Claimer.
func NewClaimer(rpc solana.RPCClient, submitter *wallet.Submitter, cfg Config, log zerolog.Logger) *Claimer {
	programID := cfg.ProgramID
	if programID == "" {
		programID = DefaultCurveProgramID
	}
	return &Claimer{
		rpc:        rpc,
		submitter:  submitter,
		mint:       cfg.Mint,
		programID:  programID,
		gasReserve: cfg.GasReserve,
		minClaim:   cfg.MinClaim,
		log:        log,
	}
}

// Claim resolves the accrual state and returns the usable lamports.
// Returns ErrInsufficient when the result is below the minimum threshold.
// A failed withdrawal yields ErrInsufficient with zero usable: the accrued
// fees stay in the vault for a later cycle, deferred rather than lost.
func (c *Claimer) Claim(ctx context.Context) (uint64, State, error) {
	state, err := c.resolveState(ctx)
	if err != nil {
		return 0, "", fmt.Errorf("resolve accrual state: %w", err)
	}

	var usable uint64
	switch state {
	case CurveActive:
		usable = c.withdrawFromCurve(ctx)
	case Migrated:
		balance, err := c.rpc.GetBalance(ctx, c.submitter.Wallet().Address())
		if err != nil {
			return 0, state, fmt.Errorf("read operator balance: %w", err)
		}
		usable = clampSub(balance, c.gasReserve)
	}

	if usable < c.minClaim {
		return 0, state, fmt.Errorf("usable %d lamports: %w", usable, ErrInsufficient)
	}
	return usable, state, nil
}

// resolveState probes the bonding-curve account for the mint.
func (c *Claimer) resolveState(ctx context.Context) (State, error) {
	curve, err := c.bondingCurveAddress()
	if err != nil {
		return "", err
	}

	info, err := c.rpc.GetAccountInfo(ctx, curve)
	if err != nil {
		return "", err
	}

	if info != nil && info.Data != "" {
		return CurveActive, nil
	}
	return Migrated, nil
}

// withdrawFromCurve submits the fee-collection instruction and measures
// the operator balance delta. Any failure yields 0 for this cycle.
func (c *Claimer) withdrawFromCurve(ctx context.Context) uint64 {
	operator := c.submitter.Wallet().Address()

	before, err := c.rpc.GetBalance(ctx, operator)
	if err != nil {
		c.log.Warn().Err(err).Msg("balance read before withdrawal failed")
		return 0
	}

	instr, err := c.collectInstruction()
	if err != nil {
		c.log.Warn().Err(err).Msg("building fee-collection instruction failed")
		return 0
	}

	sig, err := c.submitter.SubmitInstructions(ctx, []solanago.Instruction{instr})
	if err != nil {
		c.log.Warn().Err(err).Str("signature", sig).Msg("fee withdrawal failed, deferring to a later cycle")
		return 0
	}

	after, err := c.rpc.GetBalance(ctx, operator)
	if err != nil {
		c.log.Warn().Err(err).Msg("balance read after withdrawal failed")
		return 0
	}

	withdrawn := clampSub(after, before)
	c.log.Info().Uint64("lamports", withdrawn).Str("signature", sig).Msg("fees withdrawn from curve")
	return clampSub(withdrawn, c.gasReserve)
}

// bondingCurveAddress derives the curve PDA for the mint.
func (c *Claimer) bondingCurveAddress() (string, error) {
	mintBytes, err := base58.Decode(c.mint)
	if err != nil {
		return "", fmt.Errorf("decode mint: %w", err)
	}
	return solana.FindProgramAddress([][]byte{[]byte("bonding-curve"), mintBytes}, c.programID)
}

// collectInstruction builds the anchor-style fee-collection call. The
// creator vault PDA is derived from the operator key.
func (c *Claimer) collectInstruction() (solanago.Instruction, error) {
	program, err := solanago.PublicKeyFromBase58(c.programID)
	if err != nil {
		return nil, fmt.Errorf("parse program id: %w", err)
	}

	operator := c.submitter.Wallet().PublicKey()

	vaultAddr, err := solana.FindProgramAddress(
		[][]byte{[]byte("creator-vault"), operator.Bytes()}, c.programID)
	if err != nil {
		return nil, fmt.Errorf("derive creator vault: %w", err)
	}
	vault, err := solanago.PublicKeyFromBase58(vaultAddr)
	if err != nil {
		return nil, fmt.Errorf("parse creator vault: %w", err)
	}

	accounts := solanago.AccountMetaSlice{
		solanago.NewAccountMeta(operator, true, true),
		solanago.NewAccountMeta(vault, true, false),
		solanago.NewAccountMeta(solanago.SystemProgramID, false, false),
	}

	return solanago.NewInstruction(program, accounts, anchorDiscriminator("collect_creator_fee")), nil
}

// anchorDiscriminator is the 8-byte anchor method selector.
func anchorDiscriminator(method string) []byte {
	sum := sha256.Sum256([]byte("global:" + method))
	return sum[:8]
}

func clampSub(a, b uint64) uint64 {
	if a <= b {
		return 0
	}
	return a - b
}
