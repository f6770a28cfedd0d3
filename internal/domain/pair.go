// Package domain defines the ladder's core data structures and policy.
package domain

import "fmt"

// Pair identifies the traded DEX pair and the asset bought with native funds.
type Pair struct {
	// Address is the DEX pair (pool) address used for price lookups.
	Address string
	// AssetMint is the mint of the accumulated asset.
	AssetMint string
	// Base and Quote are display symbols, empty until resolved.
	Base  string
	Quote string
}

// String returns BASE/QUOTE, falling back to shortened identifiers when symbols are unknown.
func (p Pair) String() string {
	base := p.Base
	if base == "" {
		base = ShortID(p.AssetMint)
	}
	quote := p.Quote
	if quote == "" {
		quote = ShortID(p.Address)
	}
	return fmt.Sprintf("%s/%s", base, quote)
}

// ShortID abbreviates a base58 identifier for display.
func ShortID(id string) string {
	if len(id) <= 10 {
		return id
	}
	return id[:4] + ".." + id[len(id)-4:]
}
