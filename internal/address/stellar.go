package address

import (
	"github.com/stellar/go/strkey"
)

// Stellar validates Stellar account IDs (G-addresses in StrKey encoding).
type Stellar struct{}

// Network returns "stellar".
func (Stellar) Network() string { return NetworkStellar }

// IsValidAddress reports whether s is a StrKey-encoded ed25519 account ID
// with a valid checksum. Muxed (M...) and contract (C...) addresses are rejected.
func (Stellar) IsValidAddress(s string) bool {
	return strkey.IsValidEd25519PublicKey(s)
}
