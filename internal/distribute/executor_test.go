package distribute

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

// failNthRPC fails the nth SendTransaction call (1-based).
type failNthRPC struct {
	*stub.RPCClient
	failOn int
	calls  int
}

func (c *failNthRPC) SendTransaction(ctx context.Context, txBase64 string) (string, error) {
	c.calls++
	if c.calls == c.failOn {
		return "", stub.ErrUnavailable
	}
	return c.RPCClient.SendTransaction(ctx, txBase64)
}

func newTestExecutor(t *testing.T, rpc solana.RPCClient, incinerate bool) (*Executor, string) {
	t.Helper()

	w, err := wallet.Load(solanago.NewWallet().PrivateKey.String())
	require.NoError(t, err)

	mint := solanago.NewWallet().PublicKey().String()
	submitter := wallet.NewSubmitter(rpc, nil, w, solana.CommitmentConfirmed, zerolog.Nop())
	exec, err := NewExecutor(rpc, submitter, Config{Mint: mint, Decimals: 6, Incinerate: incinerate}, zerolog.Nop())
	require.NoError(t, err)
	return exec, mint
}

// decodeSent parses a submitted transaction back out of the stub.
func decodeSent(t *testing.T, txBase64 string) *solanago.Transaction {
	t.Helper()

	tx, err := solanago.TransactionFromBase64(txBase64)
	require.NoError(t, err)
	return tx
}

func TestSplit(t *testing.T) {
	tests := []struct {
		total, send, burn uint64
	}{
		{0, 0, 0},
		{1, 0, 1},
		{2, 1, 1},
		{1_000_001, 500_000, 500_001},
	}
	for _, tt := range tests {
		send, burn := Split(tt.total)
		assert.Equal(t, tt.send, send, "total %d", tt.total)
		assert.Equal(t, tt.burn, burn, "total %d", tt.total)
		assert.Equal(t, tt.total, send+burn, "total %d", tt.total)
	}
}

func TestExecuteSendsThenBurns(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.SendResults = []string{"sig-send", "sig-burn"}

	exec, mint := newTestExecutor(t, rpc, false)
	recipient := solanago.NewWallet().PublicKey()

	// Recipient already has a token account.
	recipientKey, _, err := solanago.FindAssociatedTokenAddress(recipient, solanago.MustPublicKeyFromBase58(mint))
	require.NoError(t, err)
	rpc.Accounts[recipientKey.String()] = &solana.AccountInfo{Owner: solana.TokenProgramID}

	result, err := exec.Execute(context.Background(), recipient.String(), 1_000_001)
	require.NoError(t, err)

	assert.Equal(t, uint64(500_000), result.ToSend)
	assert.Equal(t, uint64(500_001), result.ToBurn)
	assert.Equal(t, "sig-send", result.SendSignature)
	assert.Equal(t, "sig-burn", result.BurnSignature)

	require.Len(t, rpc.Sent, 2)
	sendTx := decodeSent(t, rpc.Sent[0])
	assert.Len(t, sendTx.Message.Instructions, 1, "no account creation when one exists")
}

func TestExecuteCreatesMissingRecipientAccount(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.SendResults = []string{"sig-send", "sig-burn"}

	exec, _ := newTestExecutor(t, rpc, false)
	recipient := solanago.NewWallet().PublicKey().String()

	_, err := exec.Execute(context.Background(), recipient, 100)
	require.NoError(t, err)

	require.Len(t, rpc.Sent, 2)
	sendTx := decodeSent(t, rpc.Sent[0])
	assert.Len(t, sendTx.Message.Instructions, 2, "creation precedes the transfer")
}

func TestExecuteSendFailureBurnsNothing(t *testing.T) {
	base := stub.NewRPCClient()
	rpc := &failNthRPC{RPCClient: base, failOn: 1}

	exec, _ := newTestExecutor(t, rpc, false)
	recipient := solanago.NewWallet().PublicKey().String()

	result, err := exec.Execute(context.Background(), recipient, 100)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBurnFailed)
	assert.Nil(t, result)
	assert.Empty(t, base.Sent)
}

func TestExecuteBurnFailureIsPartial(t *testing.T) {
	base := stub.NewRPCClient()
	base.SendResults = []string{"sig-send"}
	rpc := &failNthRPC{RPCClient: base, failOn: 2}

	exec, _ := newTestExecutor(t, rpc, false)
	recipient := solanago.NewWallet().PublicKey().String()

	result, err := exec.Execute(context.Background(), recipient, 100)
	require.ErrorIs(t, err, ErrBurnFailed)
	require.NotNil(t, result)
	assert.Equal(t, "sig-send", result.SendSignature)
	assert.Empty(t, result.BurnSignature)
}

func TestExecuteIncineratorMode(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.SendResults = []string{"sig-send", "sig-incinerate"}

	exec, mint := newTestExecutor(t, rpc, true)
	recipient := solanago.NewWallet().PublicKey().String()

	result, err := exec.Execute(context.Background(), recipient, 100)
	require.NoError(t, err)
	assert.Equal(t, "sig-incinerate", result.BurnSignature)

	require.Len(t, rpc.Sent, 2)
	burnTx := decodeSent(t, rpc.Sent[1])

	incinerator := solanago.MustPublicKeyFromBase58(IncineratorAddress)
	dest, _, err := solanago.FindAssociatedTokenAddress(incinerator, solanago.MustPublicKeyFromBase58(mint))
	require.NoError(t, err)

	var touchesIncinerator bool
	for _, key := range burnTx.Message.AccountKeys {
		if key.Equals(dest) {
			touchesIncinerator = true
		}
	}
	assert.True(t, touchesIncinerator, "transfer targets the incinerator token account")
}

func TestExecuteZeroTotal(t *testing.T) {
	rpc := stub.NewRPCClient()
	exec, _ := newTestExecutor(t, rpc, false)

	_, err := exec.Execute(context.Background(), solanago.NewWallet().PublicKey().String(), 0)
	require.Error(t, err)
	assert.Empty(t, rpc.Sent)
}
