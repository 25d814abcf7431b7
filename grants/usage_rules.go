package grants

import "time"

// UsageRules is the per-token-class policy governing expiry, reuse and which
// token classes a token of this class may mint. A grant carries one set of
// rules per class; a minted token snapshots the rules it was created under.
type UsageRules struct {
	// ExpiresIn is the lifetime of tokens minted under these rules.
	// Zero means the token does not expire.
	ExpiresIn time.Duration

	// MaxUsage bounds how many times the token may be used as the basis for
	// minting another token. Zero means unbounded. Authorization codes
	// default to 1.
	MaxUsage int

	// SupportsMinting lists the token classes that may be minted based on a
	// token carrying these rules.
	SupportsMinting []TokenClass
}

// CanMint reports whether these rules permit minting a token of class c.
func (r UsageRules) CanMint(c TokenClass) bool {
	for _, m := range r.SupportsMinting {
		if m == c {
			return true
		}
	}
	return false
}
