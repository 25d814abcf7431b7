package grants

import "time"

// Token is an issued credential instance. It is a value record after
// creation; the Revoked flag and UsageCount are the only mutable fields and
// are only changed through the owning Grant under its lock.
type Token struct {
	ID      string
	Value   string
	Class   TokenClass
	BasedOn string // id of the parent token, empty for roots

	IssuedAt  time.Time
	ExpiresAt time.Time // zero means no expiry

	UsageRules UsageRules // snapshot of the rules the token was minted under
	Scope      []string

	Revoked    bool
	UsageCount int // times this token has been used to mint another token
}

// Expired reports whether the token's expiry has passed. Expiry is evaluated
// lazily at lookup time, there is no background sweep.
func (t *Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// Exhausted reports whether the token's mint-usage budget is spent.
func (t *Token) Exhausted() bool {
	return t.UsageRules.MaxUsage > 0 && t.UsageCount >= t.UsageRules.MaxUsage
}
