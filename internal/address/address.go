// Package address provides network-specific account address predicates.
// The predicates are pure: they check the textual grammar of an address and
// never contact the network to confirm that the account exists.
package address

import (
	"fmt"
	"sort"
	"strings"
)

// Validator checks the address grammar of one network.
type Validator interface {
	// Network returns the network name, e.g. "stellar".
	Network() string

	// IsValidAddress reports whether s is a well-formed account address.
	IsValidAddress(s string) bool
}

// Network names.
const (
	NetworkStellar = "stellar"
	NetworkSolana  = "solana"
)

var registry = map[string]Validator{
	NetworkStellar: Stellar{},
	NetworkSolana:  Solana{},
}

// Lookup returns the validator registered for network.
func Lookup(network string) (Validator, error) {
	v, ok := registry[strings.ToLower(strings.TrimSpace(network))]
	if !ok {
		return nil, fmt.Errorf("unknown network %q (supported: %s)", network, strings.Join(Networks(), ", "))
	}
	return v, nil
}

// Networks returns the supported network names in sorted order.
func Networks() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
