package sessions

import (
	"time"

	"github.com/jrsteele09/go-token-server/grants"
)

// AuthnEvent records the authentication that established a session.
type AuthnEvent struct {
	UserID     string
	AuthnTime  time.Time
	AuthMethod string
}

// SessionInfo resolves a branch id to its owning grant and session binding.
// Callers holding only a token value obtain one through
// Manager.GetSessionInfoByToken.
type SessionInfo struct {
	// BranchID identifies the session/grant pairing and scopes token lookups.
	BranchID string
	UserID   string
	ClientID string

	// RedirectURI is the redirect URI of the authorization request that
	// created the grant. Empty for sessions created by direct grants.
	RedirectURI string

	// Authn is the authentication event recorded at session creation.
	Authn AuthnEvent

	Grant *grants.Grant
}
