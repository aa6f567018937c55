package solana

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// WSOLMint is the wrapped-SOL mint address.
const WSOLMint = "So11111111111111111111111111111111111111112"

// ParseTokenAccount parses base64 SPL token account data.
// Token account layout: mint(32) | owner(32) | amount(8 LE) | ...
func ParseTokenAccount(data string) (TokenAccount, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return TokenAccount{}, fmt.Errorf("decode token account data: %w", err)
	}
	if len(decoded) < 72 {
		return TokenAccount{}, fmt.Errorf("token account data too short: %d", len(decoded))
	}

	return TokenAccount{
		Owner:  base58.Encode(decoded[32:64]),
		Amount: binary.LittleEndian.Uint64(decoded[64:72]),
	}, nil
}

// FindProgramAddress derives a Program Derived Address for the given seeds.
// It tries bump seeds from 255 downward until the resulting point falls off
// the ed25519 curve.
func FindProgramAddress(seeds [][]byte, programID string) (string, error) {
	programBytes, err := base58.Decode(programID)
	if err != nil {
		return "", fmt.Errorf("decode program id: %w", err)
	}
	if len(programBytes) != 32 {
		return "", fmt.Errorf("program id must be 32 bytes, got %d", len(programBytes))
	}

	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programBytes...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)

		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:]), nil
		}
	}

	return "", fmt.Errorf("no off-curve address found for seeds")
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
