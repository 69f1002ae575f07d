package address

import (
	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

const solanaPubkeyLen = 32

// Solana validates Solana wallet addresses: base58 of a 32-byte ed25519
// public key that lies on the curve. Program-derived addresses are off-curve
// and cannot sign, so they are rejected as admin wallets.
type Solana struct{}

// Network returns "solana".
func (Solana) Network() string { return NetworkSolana }

// IsValidAddress reports whether s is a base58 on-curve ed25519 public key.
func (Solana) IsValidAddress(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	decoded, err := base58.Decode(s)
	if err != nil || len(decoded) != solanaPubkeyLen {
		return false
	}
	return isOnCurve(decoded)
}

// isOnCurve checks if a 32-byte point is on the ed25519 curve.
func isOnCurve(point []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
