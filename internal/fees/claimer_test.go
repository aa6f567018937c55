package fees

import (
	"context"
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lasthopeprotocol/hope-protocol/internal/solana"
	"github.com/lasthopeprotocol/hope-protocol/internal/solana/stub"
	"github.com/lasthopeprotocol/hope-protocol/internal/wallet"
)

// creditingRPC credits the operator account on every submitted transaction,
// mimicking a successful withdrawal landing on chain.
type creditingRPC struct {
	*stub.RPCClient
	operator string
	credit   uint64
}

func (c *creditingRPC) SendTransaction(ctx context.Context, txBase64 string) (string, error) {
	sig, err := c.RPCClient.SendTransaction(ctx, txBase64)
	if err != nil {
		return "", err
	}
	c.Balances[c.operator] += c.credit
	return sig, nil
}

func newTestClaimer(t *testing.T, rpc solana.RPCClient, mint string, cfg Config) (*Claimer, *wallet.Wallet) {
	t.Helper()

	w, err := wallet.Load(solanago.NewWallet().PrivateKey.String())
	require.NoError(t, err)

	cfg.Mint = mint
	submitter := wallet.NewSubmitter(rpc, nil, w, solana.CommitmentConfirmed, zerolog.Nop())
	return NewClaimer(rpc, submitter, cfg, zerolog.Nop()), w
}

func curveAddress(t *testing.T, mint string) string {
	t.Helper()

	mintKey, err := solanago.PublicKeyFromBase58(mint)
	require.NoError(t, err)
	addr, err := solana.FindProgramAddress(
		[][]byte{[]byte("bonding-curve"), mintKey.Bytes()}, DefaultCurveProgramID)
	require.NoError(t, err)
	return addr
}

func TestClaimMigrated(t *testing.T) {
	mint := solanago.NewWallet().PublicKey().String()
	rpc := stub.NewRPCClient()

	claimer, w := newTestClaimer(t, rpc, mint, Config{
		GasReserve: 10_000_000,
		MinClaim:   5_000_000,
	})
	rpc.Balances[w.Address()] = 1_000_000_000

	usable, state, err := claimer.Claim(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Migrated, state)
	assert.Equal(t, uint64(990_000_000), usable)
}

func TestClaimMigratedBelowMinimum(t *testing.T) {
	mint := solanago.NewWallet().PublicKey().String()
	rpc := stub.NewRPCClient()

	claimer, w := newTestClaimer(t, rpc, mint, Config{
		GasReserve: 10_000_000,
		MinClaim:   5_000_000,
	})
	rpc.Balances[w.Address()] = 12_000_000 // only 2m usable after the reserve

	_, state, err := claimer.Claim(context.Background())
	require.ErrorIs(t, err, ErrInsufficient)
	assert.Equal(t, Migrated, state)
}

func TestClaimCurveActive(t *testing.T) {
	mint := solanago.NewWallet().PublicKey().String()

	base := stub.NewRPCClient()
	base.Accounts[curveAddress(t, mint)] = &solana.AccountInfo{
		Owner: DefaultCurveProgramID,
		Data:  "AQ==",
	}

	rpc := &creditingRPC{RPCClient: base, credit: 500_000_000}
	claimer, w := newTestClaimer(t, rpc, mint, Config{
		GasReserve: 10_000_000,
		MinClaim:   5_000_000,
	})
	rpc.operator = w.Address()
	base.Balances[w.Address()] = 20_000_000

	usable, state, err := claimer.Claim(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CurveActive, state)
	assert.Equal(t, uint64(490_000_000), usable)
	require.Len(t, base.Sent, 1)
}

func TestClaimCurveActiveWithdrawFailureDefers(t *testing.T) {
	mint := solanago.NewWallet().PublicKey().String()

	rpc := stub.NewRPCClient()
	rpc.Accounts[curveAddress(t, mint)] = &solana.AccountInfo{
		Owner: DefaultCurveProgramID,
		Data:  "AQ==",
	}
	rpc.FailSend = true

	claimer, w := newTestClaimer(t, rpc, mint, Config{
		GasReserve: 10_000_000,
		MinClaim:   5_000_000,
	})
	rpc.Balances[w.Address()] = 1_000_000_000

	usable, state, err := claimer.Claim(context.Background())
	require.ErrorIs(t, err, ErrInsufficient)
	assert.Equal(t, CurveActive, state)
	assert.Zero(t, usable)
}

func TestClaimStateReprobedEachCall(t *testing.T) {
	mint := solanago.NewWallet().PublicKey().String()
	curve := curveAddress(t, mint)

	base := stub.NewRPCClient()
	base.Accounts[curve] = &solana.AccountInfo{Owner: DefaultCurveProgramID, Data: "AQ=="}
	rpc := &creditingRPC{RPCClient: base, credit: 500_000_000}

	claimer, w := newTestClaimer(t, rpc, mint, Config{
		GasReserve: 10_000_000,
		MinClaim:   5_000_000,
	})
	rpc.operator = w.Address()
	base.Balances[w.Address()] = 20_000_000

	_, state, err := claimer.Claim(context.Background())
	require.NoError(t, err)
	require.Equal(t, CurveActive, state)

	// Curve account drops off chain between cycles: next claim works
	// against the operator balance directly.
	delete(base.Accounts, curve)

	usable, state, err := claimer.Claim(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Migrated, state)
	assert.Equal(t, uint64(510_000_000), usable)
}
