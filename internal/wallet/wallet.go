// Package wallet holds the operator key and the sign-submit-confirm path
// every ledger mutation goes through.
package wallet

import (
	"encoding/base64"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
)

// Wallet wraps the operator's ed25519 keypair.
type Wallet struct {
	key solanago.PrivateKey
}

// Load parses a base58-encoded private key.
func Load(base58Key string) (*Wallet, error) {
	if base58Key == "" {
		return nil, fmt.Errorf("empty private key")
	}
	key, err := solanago.PrivateKeyFromBase58(base58Key)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &Wallet{key: key}, nil
}

// PublicKey returns the operator public key.
func (w *Wallet) PublicKey() solanago.PublicKey {
	return w.key.PublicKey()
}

// Address returns the operator address in base58.
func (w *Wallet) Address() string {
	return w.key.PublicKey().String()
}

// SignTransaction signs the transaction with the operator key.
func (w *Wallet) SignTransaction(tx *solanago.Transaction) error {
	_, err := tx.Sign(func(pub solanago.PublicKey) *solanago.PrivateKey {
		if pub.Equals(w.key.PublicKey()) {
			return &w.key
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sign transaction: %w", err)
	}
	return nil
}

// SignBase64 deserializes an externally built transaction, signs it and
// re-serializes it. Used for aggregator-built swap transactions.
func (w *Wallet) SignBase64(txBase64 string) (string, error) {
	tx, err := solanago.TransactionFromBase64(txBase64)
	if err != nil {
		return "", fmt.Errorf("decode transaction: %w", err)
	}

	if err := w.SignTransaction(tx); err != nil {
		return "", err
	}

	bin, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(bin), nil
}
