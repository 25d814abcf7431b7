package sessions

import (
	"time"

	"github.com/jrsteele09/go-token-server/grants"
)

// AuthzPolicy decides the scope and usage rules a new grant receives. The
// real policy engine is an external collaborator; StaticPolicy is the
// configuration-driven default.
type AuthzPolicy interface {
	GrantConfig(userID, clientID string, requested []string) (scope []string, rules map[grants.TokenClass]grants.UsageRules)
}

// StaticPolicy grants the requested scope under a fixed set of usage rules.
type StaticPolicy struct {
	UsageRules map[grants.TokenClass]grants.UsageRules
}

func (p StaticPolicy) GrantConfig(_, _ string, requested []string) ([]string, map[grants.TokenClass]grants.UsageRules) {
	return requested, p.UsageRules
}

// DefaultUsageRules builds the standard per-class policy: single use codes
// that can mint access and refresh tokens, and refresh tokens that can mint
// both again.
func DefaultUsageRules(codeExpiry, accessExpiry, refreshExpiry time.Duration) map[grants.TokenClass]grants.UsageRules {
	return map[grants.TokenClass]grants.UsageRules{
		grants.AuthorizationCode: {
			ExpiresIn:       codeExpiry,
			MaxUsage:        1,
			SupportsMinting: []grants.TokenClass{grants.AccessToken, grants.RefreshToken},
		},
		grants.AccessToken: {
			ExpiresIn: accessExpiry,
		},
		grants.RefreshToken: {
			ExpiresIn:       refreshExpiry,
			SupportsMinting: []grants.TokenClass{grants.AccessToken, grants.RefreshToken},
		},
	}
}
