package grants

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
)

// Grant is the minting authority for one session/client authorization. It
// owns an append-only arena of tokens forming a DAG: every token references
// its parent by id, never by owning pointer, so refresh chains of any length
// stay cycle-safe.
type Grant struct {
	ID        string
	UserID    string
	ClientID  string
	Scope     []string
	CreatedAt time.Time
	ExpiresAt time.Time // zero means the grant does not expire

	// RedirectURI is the redirect URI of the authorization request the grant
	// was created for. Code exchanges must present the same value.
	RedirectURI string

	// AuthMethod and AuthTime record how and when the caller authenticated
	// when the grant was created.
	AuthMethod string
	AuthTime   time.Time

	// UsageRules maps each token class to the default policy tokens of that
	// class are minted under. A per-mint override takes precedence.
	UsageRules map[TokenClass]UsageRules

	lifetime time.Duration
	nowFunc  func() time.Time

	mu      sync.Mutex
	tokens  []*Token
	byID    map[string]*Token
	byValue map[string]*Token
}

// GrantOption modifies a Grant at construction time.
type GrantOption func(*Grant)

// WithNowFunc sets the time source (primarily for testing).
func WithNowFunc(now func() time.Time) GrantOption {
	return func(g *Grant) {
		g.nowFunc = now
	}
}

// WithExpiresIn sets the lifetime of the grant itself.
func WithExpiresIn(d time.Duration) GrantOption {
	return func(g *Grant) {
		g.lifetime = d
	}
}

// WithRedirectURI records the authorization request's redirect URI.
func WithRedirectURI(uri string) GrantOption {
	return func(g *Grant) {
		g.RedirectURI = uri
	}
}

// WithAuthn records the authentication event that established the grant.
func WithAuthn(method string, at time.Time) GrantOption {
	return func(g *Grant) {
		g.AuthMethod = method
		g.AuthTime = at
	}
}

// NewGrant creates a grant bound to a user and client with the given scope
// and per-class usage rules.
func NewGrant(userID, clientID string, scope []string, rules map[TokenClass]UsageRules, options ...GrantOption) *Grant {
	g := &Grant{
		ID:         ulid.Make().String(),
		UserID:     userID,
		ClientID:   clientID,
		Scope:      append([]string(nil), scope...),
		UsageRules: rules,
		nowFunc:    time.Now,
		byID:       make(map[string]*Token),
		byValue:    make(map[string]*Token),
	}
	for _, opt := range options {
		opt(g)
	}
	g.CreatedAt = g.nowFunc()
	if g.lifetime > 0 {
		g.ExpiresAt = g.CreatedAt.Add(g.lifetime)
	}
	if g.UsageRules == nil {
		g.UsageRules = map[TokenClass]UsageRules{}
	}
	return g
}

// Expired reports whether the grant's own expiry has passed.
func (g *Grant) Expired(now time.Time) bool {
	return !g.ExpiresAt.IsZero() && now.After(g.ExpiresAt)
}

// MintRequest describes one token to mint from a grant.
type MintRequest struct {
	// SessionID is the branch id the token belongs to, carried into the
	// token value's claims.
	SessionID string

	// Subject is the sub claim of the minted token value.
	Subject string

	// Class of the token to mint.
	Class TokenClass

	// Handler generates the token value. Required.
	Handler TokenHandler

	// BasedOn is the parent token, or nil for a root token. The parent must
	// be non-revoked and its usage rules must permit minting Class.
	BasedOn *Token

	// Scope of the new token. Nil means the grant's scope. Must be a subset
	// of the grant's scope.
	Scope []string

	// Rules overrides the grant's default usage rules for Class.
	Rules *UsageRules

	// Audience is carried into the token value's claims.
	Audience []string
}

// MintToken validates the request, generates a token value and appends the
// new token to the grant. The operation is all-or-nothing: a validation or
// signing failure leaves the grant's token collection untouched.
func (g *Grant) MintToken(req MintRequest) (*Token, error) {
	minted, err := g.MintTokens([]MintRequest{req})
	if err != nil {
		return nil, err
	}
	return minted[0], nil
}

// MintTokens mints a batch of tokens as a single all-or-nothing operation:
// every request is validated and every value generated before the first
// token is attached, so a failure anywhere leaves the grant untouched.
func (g *Grant) MintTokens(reqs []MintRequest) ([]*Token, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.nowFunc()
	if g.Expired(now) {
		return nil, GrantExpiredErr
	}
	staged := make([]*Token, 0, len(reqs))
	parents := make([]*Token, 0, len(reqs))
	values := make(map[string]struct{}, len(reqs))

	for _, req := range reqs {
		if req.Handler == nil {
			return nil, errors.New("[Grant.MintTokens] token handler is required")
		}
		if !req.Class.Valid() {
			return nil, UnknownTokenClassErr
		}

		rules := g.resolveRules(req.Class, req.Rules)

		var parent *Token
		if req.BasedOn != nil {
			parent = g.byID[req.BasedOn.ID]
			if parent == nil {
				return nil, TokenNotFoundErr
			}
			if parent.Revoked || !parent.UsageRules.CanMint(req.Class) {
				return nil, &MintingNotSupportedError{Class: req.Class}
			}
		}

		scope := req.Scope
		if scope == nil {
			scope = g.Scope
		}
		if !scopeSubset(scope, g.Scope) {
			return nil, ScopeExceedsGrantErr
		}

		value, err := req.Handler.Mint(Payload{
			SessionID: req.SessionID,
			Subject:   req.Subject,
			ClientID:  g.ClientID,
			Audience:  req.Audience,
			Scope:     scope,
			Class:     req.Class,
		})
		if err != nil {
			return nil, err
		}
		if _, exists := g.byValue[value]; exists {
			return nil, DuplicateValueErr
		}
		if _, exists := values[value]; exists {
			return nil, DuplicateValueErr
		}
		values[value] = struct{}{}

		tok := &Token{
			ID:         ulid.Make().String(),
			Value:      value,
			Class:      req.Class,
			IssuedAt:   now,
			UsageRules: rules,
			Scope:      append([]string(nil), scope...),
		}
		if rules.ExpiresIn > 0 {
			tok.ExpiresAt = now.Add(rules.ExpiresIn)
		}
		if parent != nil {
			tok.BasedOn = parent.ID
		}
		staged = append(staged, tok)
		parents = append(parents, parent)
	}

	for i, tok := range staged {
		if parents[i] != nil {
			parents[i].UsageCount++
		}
		g.tokens = append(g.tokens, tok)
		g.byID[tok.ID] = tok
		g.byValue[tok.Value] = tok
	}
	return staged, nil
}

// GetToken returns the grant's token with the given value.
func (g *Grant) GetToken(value string) (*Token, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	tok, ok := g.byValue[value]
	if !ok {
		return nil, TokenNotFoundErr
	}
	return tok, nil
}

// GetTokenByID returns the grant's token with the given id.
func (g *Grant) GetTokenByID(id string) (*Token, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	tok, ok := g.byID[id]
	if !ok {
		return nil, TokenNotFoundErr
	}
	return tok, nil
}

// RevokeToken sets the revoked flag on exactly the named token. Children of a
// revoked token remain valid; the parent merely becomes ineligible for
// further minting.
func (g *Grant) RevokeToken(value string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	tok, ok := g.byValue[value]
	if !ok {
		return TokenNotFoundErr
	}
	tok.Revoked = true
	return nil
}

// TokenStatus reports whether the named token is usable right now. It
// returns TokenRevokedErr, TokenExpiredErr or TokenExhaustedErr for a token
// that must be rejected, TokenNotFoundErr for an unknown value, and
// GrantExpiredErr when the grant itself has lapsed.
func (g *Grant) TokenStatus(value string, now time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Expired(now) {
		return GrantExpiredErr
	}
	tok, ok := g.byValue[value]
	if !ok {
		return TokenNotFoundErr
	}
	switch {
	case tok.Revoked:
		return TokenRevokedErr
	case tok.Expired(now):
		return TokenExpiredErr
	case tok.Exhausted():
		return TokenExhaustedErr
	}
	return nil
}

// Tokens returns the grant's tokens in mint order.
func (g *Grant) Tokens() []*Token {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*Token(nil), g.tokens...)
}

func (g *Grant) resolveRules(class TokenClass, override *UsageRules) UsageRules {
	if override != nil {
		return *override
	}
	if rules, ok := g.UsageRules[class]; ok {
		return rules
	}
	// Authorization codes are single use unless policy says otherwise.
	if class == AuthorizationCode {
		return UsageRules{MaxUsage: 1}
	}
	return UsageRules{}
}

func scopeSubset(sub, super []string) bool {
	set := make(map[string]struct{}, len(super))
	for _, s := range super {
		set[s] = struct{}{}
	}
	for _, s := range sub {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}
