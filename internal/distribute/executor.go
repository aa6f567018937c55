// Package distribute splits an acquired token amount between the selected
// holder and destruction, and executes both transfers on chain.
package distribute

import (
	"context"
	"errors"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/rs/zerolog"

	"github.com/lasthopeprotocol/hope-protocol/internal/solana"
	"github.com/lasthopeprotocol/hope-protocol/internal/wallet"
)

// IncineratorAddress is the conventional unspendable account tokens can be
// transferred to instead of burning.
const IncineratorAddress = "1nc1nerator11111111111111111111111111111111"

// ErrBurnFailed marks a distribution where the holder transfer landed but
// the destruction step did not. The send is never rolled back.
var ErrBurnFailed = errors.New("burn step failed after successful send")

// Result reports what a distribution actually did on chain.
type Result struct {
	ToSend        uint64
	ToBurn        uint64
	SendSignature string
	BurnSignature string
}

// Executor performs the two-transfer distribution.
type Executor struct {
	rpc       solana.RPCClient
	submitter *wallet.Submitter
	mint      solanago.PublicKey
	decimals  uint8
	// incinerate selects a transfer to the incinerator account instead of
	// a burn instruction.
	incinerate bool
	log        zerolog.Logger
}

// Config for an Executor.
type Config struct {
	Mint       string
	Decimals   uint8
	Incinerate bool
}

// NewExecutor creates an Executor.
func NewExecutor(rpc solana.RPCClient, submitter *wallet.Submitter, cfg Config, log zerolog.Logger) (*Executor, error) {
	mint, err := solanago.PublicKeyFromBase58(cfg.Mint)
	if err != nil {
		return nil, fmt.Errorf("parse mint: %w", err)
	}
	return &Executor{
		rpc:        rpc,
		submitter:  submitter,
		mint:       mint,
		decimals:   cfg.Decimals,
		incinerate: cfg.Incinerate,
		log:        log,
	}, nil
}

// Split divides an amount in half, rounding the send side down. The burn
// side absorbs the odd unit so nothing is left over.
func Split(total uint64) (toSend, toBurn uint64) {
	toSend = total / 2
	toBurn = total - toSend
	return toSend, toBurn
}

// Execute sends half of total to the recipient and destroys the rest.
// A failed send aborts before anything is burned. A failed burn after a
// successful send returns a Result alongside ErrBurnFailed so the caller
// can record the partial outcome.
func (e *Executor) Execute(ctx context.Context, recipient string, total uint64) (*Result, error) {
	if total == 0 {
		return nil, fmt.Errorf("nothing to distribute")
	}

	recipientKey, err := solanago.PublicKeyFromBase58(recipient)
	if err != nil {
		return nil, fmt.Errorf("parse recipient: %w", err)
	}

	toSend, toBurn := Split(total)
	result := &Result{ToSend: toSend, ToBurn: toBurn}

	operator := e.submitter.Wallet().PublicKey()
	source, _, err := solanago.FindAssociatedTokenAddress(operator, e.mint)
	if err != nil {
		return nil, fmt.Errorf("derive operator token account: %w", err)
	}

	dest, createInstr, err := e.ensureRecipientAccount(ctx, recipientKey)
	if err != nil {
		return nil, fmt.Errorf("resolve recipient token account: %w", err)
	}

	sendInstrs := make([]solanago.Instruction, 0, 2)
	if createInstr != nil {
		sendInstrs = append(sendInstrs, createInstr)
	}
	sendInstrs = append(sendInstrs, token.NewTransferCheckedInstruction(
		toSend, e.decimals, source, e.mint, dest, operator, nil,
	).Build())

	sendSig, err := e.submitter.SubmitInstructions(ctx, sendInstrs)
	if err != nil {
		return nil, fmt.Errorf("send to holder: %w", err)
	}
	result.SendSignature = sendSig
	e.log.Info().Str("recipient", recipient).Uint64("amount", toSend).
		Str("signature", sendSig).Msg("tokens sent to holder")

	burnSig, err := e.burn(ctx, source, operator, toBurn)
	if err != nil {
		e.log.Error().Err(err).Uint64("amount", toBurn).Msg("burn step failed")
		return result, fmt.Errorf("%w: %v", ErrBurnFailed, err)
	}
	result.BurnSignature = burnSig
	e.log.Info().Uint64("amount", toBurn).Str("signature", burnSig).Msg("tokens destroyed")

	return result, nil
}

// ensureRecipientAccount derives the recipient's associated token account
// and returns a create instruction when it does not exist yet.
func (e *Executor) ensureRecipientAccount(ctx context.Context, recipient solanago.PublicKey) (solanago.PublicKey, solanago.Instruction, error) {
	dest, _, err := solanago.FindAssociatedTokenAddress(recipient, e.mint)
	if err != nil {
		return solanago.PublicKey{}, nil, err
	}

	info, err := e.rpc.GetAccountInfo(ctx, dest.String())
	if err != nil {
		return solanago.PublicKey{}, nil, err
	}
	if info != nil {
		return dest, nil, nil
	}

	create := associatedtokenaccount.NewCreateInstruction(
		e.submitter.Wallet().PublicKey(), recipient, e.mint,
	).Build()
	return dest, create, nil
}

func (e *Executor) burn(ctx context.Context, source, operator solanago.PublicKey, amount uint64) (string, error) {
	var instr solanago.Instruction

	if e.incinerate {
		incinerator := solanago.MustPublicKeyFromBase58(IncineratorAddress)
		dest, _, err := solanago.FindAssociatedTokenAddress(incinerator, e.mint)
		if err != nil {
			return "", fmt.Errorf("derive incinerator token account: %w", err)
		}
		instr = token.NewTransferCheckedInstruction(
			amount, e.decimals, source, e.mint, dest, operator, nil,
		).Build()
	} else {
		instr = token.NewBurnInstruction(amount, source, e.mint, operator, nil).Build()
	}

	return e.submitter.SubmitInstructions(ctx, []solanago.Instruction{instr})
}
