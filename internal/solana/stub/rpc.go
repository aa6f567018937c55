package stub

import (
	"context"
	"errors"

	"github.com/lasthopeprotocol/hope-protocol/internal/solana"
)

// ErrUnavailable is returned when the stub has been told to fail.
var ErrUnavailable = errors.New("ledger unavailable")

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	Balances      map[string]uint64
	Accounts      map[string]*solana.AccountInfo
	TokenAccounts map[string][]solana.TokenAccount // mint -> accounts
	Signatures    map[string][]solana.SignatureInfo
	Transactions  map[string]*solana.Transaction
	Blockhash     string

	// SendResults queues signatures returned by SendTransaction in order.
	SendResults []string
	// Sent records every submitted transaction.
	Sent []string

	// FailSignaturesFor makes GetSignaturesForAddress fail for an address.
	FailSignaturesFor map[string]bool
	// FailSend makes SendTransaction fail.
	FailSend bool
	// FailConfirm makes WaitForConfirmation fail.
	FailConfirm bool
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Balances:          make(map[string]uint64),
		Accounts:          make(map[string]*solana.AccountInfo),
		TokenAccounts:     make(map[string][]solana.TokenAccount),
		Signatures:        make(map[string][]solana.SignatureInfo),
		Transactions:      make(map[string]*solana.Transaction),
		Blockhash:         "G9JC3E2RqX9B3sqab7VH5rBCrSzyjZyv8qFAGC2y9xJ9",
		FailSignaturesFor: make(map[string]bool),
	}
}

// GetBalance retrieves a stubbed lamport balance.
func (c *RPCClient) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	return c.Balances[pubkey], nil
}

// GetAccountInfo retrieves stubbed account info, nil when absent.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	return c.Accounts[pubkey], nil
}

// GetTokenAccountsByMint retrieves stubbed token accounts for a mint.
func (c *RPCClient) GetTokenAccountsByMint(_ context.Context, mint string) ([]solana.TokenAccount, error) {
	return c.TokenAccounts[mint], nil
}

// GetSignaturesForAddress retrieves stubbed signatures for an address.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	if c.FailSignaturesFor[address] {
		return nil, ErrUnavailable
	}

	sigs := c.Signatures[address]
	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		return sigs[:opts.Limit], nil
	}
	return sigs, nil
}

// GetTransaction retrieves a stubbed transaction, nil when unknown.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	return c.Transactions[signature], nil
}

// GetLatestBlockhash returns the stubbed blockhash.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (string, error) {
	return c.Blockhash, nil
}

// SendTransaction records the submission and returns the next queued signature.
func (c *RPCClient) SendTransaction(_ context.Context, txBase64 string) (string, error) {
	if c.FailSend {
		return "", ErrUnavailable
	}
	c.Sent = append(c.Sent, txBase64)
	if len(c.SendResults) == 0 {
		return "stub-signature", nil
	}
	sig := c.SendResults[0]
	c.SendResults = c.SendResults[1:]
	return sig, nil
}

// WaitForConfirmation succeeds immediately unless told to fail.
func (c *RPCClient) WaitForConfirmation(_ context.Context, signature string, _ solana.Commitment) error {
	if c.FailConfirm {
		return ErrUnavailable
	}
	return nil
}

// AddSignatures adds signatures for an address to the stub store.
func (c *RPCClient) AddSignatures(address string, sigs []solana.SignatureInfo) {
	c.Signatures[address] = sigs
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.Transactions[tx.Signature] = tx
}
