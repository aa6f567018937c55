package wallet

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/lasthopeprotocol/hope-protocol/internal/solana"
)

// defaultConfirmTimeout bounds a single confirmation wait. Expiry means
// the outcome is unknown, not that the transaction failed.
const defaultConfirmTimeout = 60 * time.Second

// Submitter assembles, signs, submits and confirms operator transactions.
// When a WebSocket client is present, confirmation uses a signature
// subscription with status polling as the fallback; otherwise it polls.
type Submitter struct {
	rpc            solana.RPCClient
	ws             solana.WSClient // optional
	wallet         *Wallet
	commitment     solana.Commitment
	confirmTimeout time.Duration
	log            zerolog.Logger
}

// SubmitterOption configures a Submitter.
type SubmitterOption func(*Submitter)

// WithConfirmTimeout overrides how long a single confirmation may take.
func WithConfirmTimeout(d time.Duration) SubmitterOption {
	return func(s *Submitter) { s.confirmTimeout = d }
}

// NewSubmitter creates a Submitter. ws may be nil.
func NewSubmitter(rpc solana.RPCClient, ws solana.WSClient, w *Wallet, commitment solana.Commitment, log zerolog.Logger, opts ...SubmitterOption) *Submitter {
	s := &Submitter{
		rpc:            rpc,
		ws:             ws,
		wallet:         w,
		commitment:     commitment,
		confirmTimeout: defaultConfirmTimeout,
		log:            log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Wallet returns the operator wallet.
func (s *Submitter) Wallet() *Wallet {
	return s.wallet
}

// SubmitInstructions builds a transaction from the instructions with a
// fresh blockhash, signs it with the operator key, submits it and waits
// for confirmation. Returns the signature of the confirmed transaction.
func (s *Submitter) SubmitInstructions(ctx context.Context, instrs []solanago.Instruction) (string, error) {
	blockhash, err := s.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch blockhash: %w", err)
	}

	hash, err := solanago.HashFromBase58(blockhash)
	if err != nil {
		return "", fmt.Errorf("parse blockhash: %w", err)
	}

	tx, err := solanago.NewTransaction(instrs, hash, solanago.TransactionPayer(s.wallet.PublicKey()))
	if err != nil {
		return "", fmt.Errorf("build transaction: %w", err)
	}

	if err := s.wallet.SignTransaction(tx); err != nil {
		return "", err
	}

	bin, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("serialize transaction: %w", err)
	}

	return s.SubmitRaw(ctx, base64.StdEncoding.EncodeToString(bin))
}

// SubmitSignedBase64 signs an externally built transaction and submits it.
func (s *Submitter) SubmitSignedBase64(ctx context.Context, txBase64 string) (string, error) {
	signed, err := s.wallet.SignBase64(txBase64)
	if err != nil {
		return "", err
	}
	return s.SubmitRaw(ctx, signed)
}

// SubmitRaw submits an already signed base64 transaction and waits for
// confirmation.
func (s *Submitter) SubmitRaw(ctx context.Context, signedBase64 string) (string, error) {
	sig, err := s.rpc.SendTransaction(ctx, signedBase64)
	if err != nil {
		return "", fmt.Errorf("submit transaction: %w", err)
	}

	if err := s.confirm(ctx, sig); err != nil {
		// Funds may have moved. The signature is surfaced so the caller
		// can log it; the outcome stays ambiguous, never assumed.
		return sig, err
	}
	return sig, nil
}

func (s *Submitter) confirm(ctx context.Context, sig string) error {
	// A signature that never confirms must not stall the caller. The wait
	// is bounded; expiry surfaces as the ambiguous-outcome error above.
	ctx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()

	if s.ws != nil {
		ch, err := s.ws.SubscribeSignature(ctx, sig, s.commitment)
		if err == nil {
			select {
			case result, ok := <-ch:
				if ok {
					if result.Err != nil {
						return fmt.Errorf("transaction %s failed on chain: %v", sig, result.Err)
					}
					return nil
				}
				// Subscription died without a result. Fall through to polling.
				s.log.Debug().Str("signature", sig).Msg("signature subscription lost, polling instead")
			case <-ctx.Done():
				return fmt.Errorf("confirmation of %s: %w", sig, ctx.Err())
			}
		} else {
			s.log.Debug().Err(err).Str("signature", sig).Msg("signature subscribe failed, polling instead")
		}
	}

	return s.rpc.WaitForConfirmation(ctx, sig, s.commitment)
}
