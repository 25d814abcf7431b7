package endpoint

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jrsteele09/go-token-server/clientauth"
	"github.com/jrsteele09/go-token-server/clients"
	"github.com/jrsteele09/go-token-server/grants"
	"github.com/jrsteele09/go-token-server/oauth2"
	"github.com/jrsteele09/go-token-server/sessions"
	"github.com/jrsteele09/go-token-server/users"
	"github.com/pkg/errors"
)

// Request is a token request after parsing: the wire parameters plus the
// authenticated client and, for code/refresh exchanges, the resolved session
// and the presented token.
type Request struct {
	oauth2.TokenRequest

	// Client is the authenticated caller.
	Client *clients.Client

	// AuthMethod records which method authenticated the caller. It becomes
	// the default method for later requests on the same grant.
	AuthMethod clientauth.Method

	// Session is the branch the presented code or refresh token belongs to.
	// Nil for the client_credentials and password grants.
	Session *sessions.SessionInfo

	// GrantToken is the presented authorization code or refresh token.
	GrantToken *grants.Token
}

// Response is the assembled token response plus the transport headers the
// endpoint mandates.
type Response struct {
	Args    *oauth2.TokenResponse
	Headers http.Header
}

// TokenEndpoint drives a token request through parse, client authentication,
// grant-type dispatch and response assembly. All collaborators are injected
// at construction.
type TokenEndpoint struct {
	sessions *sessions.Manager
	verifier *clientauth.Verifier
	users    users.Repo

	helpers              map[string]GrantTypeHelper
	revokeRefreshOnIssue bool
	nowFunc              func() time.Time
}

// Option modifies a TokenEndpoint at construction time.
type Option func(*TokenEndpoint)

// WithRevokeRefreshOnIssue sets the server-wide refresh rotation policy.
// Individual clients may override it through their registration.
func WithRevokeRefreshOnIssue(revoke bool) Option {
	return func(e *TokenEndpoint) {
		e.revokeRefreshOnIssue = revoke
	}
}

// WithUserRepo enables the password grant against the given credential store.
func WithUserRepo(repo users.Repo) Option {
	return func(e *TokenEndpoint) {
		e.users = repo
	}
}

// WithActiveTypes restricts the helper registry to the named helpers, as
// ConfigureTypes does.
func WithActiveTypes(names ...string) Option {
	return func(e *TokenEndpoint) {
		e.ConfigureTypes(names)
	}
}

// WithNowFunc sets the time source (primarily for testing).
func WithNowFunc(now func() time.Time) Option {
	return func(e *TokenEndpoint) {
		e.nowFunc = now
	}
}

// New creates a token endpoint with the full helper registry active.
func New(sessionManager *sessions.Manager, verifier *clientauth.Verifier, options ...Option) (*TokenEndpoint, error) {
	if sessionManager == nil {
		return nil, errors.New("[endpoint.New] session manager is required")
	}
	if verifier == nil {
		return nil, errors.New("[endpoint.New] client auth verifier is required")
	}
	e := &TokenEndpoint{
		sessions: sessionManager,
		verifier: verifier,
		nowFunc:  time.Now,
	}
	e.helpers = defaultHelpers(e)
	for _, opt := range options {
		opt(e)
	}
	return e, nil
}

// ConfigureTypes filters the helper registry down to the named helpers. A
// nil or empty list restores the full default registry.
func (e *TokenEndpoint) ConfigureTypes(names []string) {
	all := defaultHelpers(e)
	if len(names) == 0 {
		e.helpers = all
		return
	}
	active := make(map[string]GrantTypeHelper, len(names))
	for _, name := range names {
		if helper, ok := all[name]; ok {
			active[name] = helper
		}
	}
	e.helpers = active
}

// Helpers returns the active helper registry.
func (e *TokenEndpoint) Helpers() map[string]GrantTypeHelper {
	return e.helpers
}

// ParseRequest authenticates the caller and resolves the presented code or
// refresh token. A code that was already consumed or revoked, and a revoked
// refresh token, are rejected here — before any grant-type logic runs — so
// a replayed credential never reaches a helper. Parse failures leave no
// state behind.
func (e *TokenEndpoint) ParseRequest(raw oauth2.TokenRequest) (*Request, error) {
	authn, err := e.verifier.Verify(raw)
	if err != nil {
		return nil, oauth2.NewTokenError(oauth2.ErrorInvalidClient, err.Error())
	}

	req := &Request{
		TokenRequest: raw,
		Client:       authn.Client,
		AuthMethod:   authn.Method,
	}
	req.ClientID = authn.Client.ID

	switch raw.GrantType {
	case oauth2.AuthorizationCodeGrant:
		if raw.Code == "" {
			return nil, oauth2.NewTokenError(oauth2.ErrorInvalidRequest, "missing code")
		}
		if raw.RedirectURI == "" {
			return nil, oauth2.NewTokenError(oauth2.ErrorInvalidRequest, "missing redirect_uri")
		}
		if err := e.resolveGrantToken(req, raw.Code, grants.AuthorizationCode); err != nil {
			return nil, err
		}
		if req.Session.RedirectURI != "" && req.Session.RedirectURI != raw.RedirectURI {
			return nil, oauth2.NewTokenError(oauth2.ErrorInvalidGrant, "redirect_uri mismatch")
		}
	case oauth2.RefreshTokenGrant:
		if raw.RefreshToken == "" {
			return nil, oauth2.NewTokenError(oauth2.ErrorInvalidRequest, "missing refresh_token")
		}
		if err := e.resolveGrantToken(req, raw.RefreshToken, grants.RefreshToken); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// resolveGrantToken looks up the presented token value, binds its session to
// the request and fast-rejects unusable tokens.
func (e *TokenEndpoint) resolveGrantToken(req *Request, value string, class grants.TokenClass) error {
	info, err := e.sessions.GetSessionInfoByToken(value, class)
	if err != nil {
		return oauth2.NewTokenError(oauth2.ErrorInvalidGrant, fmt.Sprintf("unknown %s", class))
	}
	if err := info.Grant.TokenStatus(value, e.nowFunc()); err != nil {
		return oauth2.NewTokenError(oauth2.ErrorInvalidGrant, err.Error())
	}
	tok, err := info.Grant.GetToken(value)
	if err != nil {
		return oauth2.NewTokenError(oauth2.ErrorInvalidGrant, err.Error())
	}
	req.Session = info
	req.GrantToken = tok
	return nil
}

// ProcessRequest dispatches a parsed request to the helper for its grant
// type. issueRefresh controls whether helpers may mint a refresh token in
// addition to the access token; a helper still omits it when the client or
// the usage rules disallow one.
func (e *TokenEndpoint) ProcessRequest(req *Request, issueRefresh bool) (*Response, error) {
	name, ok := helperNameFor(req.GrantType)
	if !ok {
		return nil, unsupportedGrantType(req.GrantType)
	}
	helper, ok := e.helpers[name]
	if !ok {
		return nil, unsupportedGrantType(req.GrantType)
	}
	if !req.Client.SupportsGrantType(req.GrantType) {
		return nil, unsupportedGrantType(req.GrantType)
	}
	if req.Session != nil && req.Session.ClientID != req.Client.ID {
		return nil, oauth2.NewTokenError(oauth2.ErrorInvalidGrant, "Wrong client")
	}

	args, err := helper.Process(req, issueRefresh)
	if err != nil {
		return nil, e.mapHelperError(err)
	}

	headers := http.Header{}
	headers.Set("Cache-Control", "no-store")
	headers.Set("Pragma", "no-cache")
	return &Response{Args: args, Headers: headers}, nil
}

// DoResponse renders the final wire object: the JSON body, HTTP status and
// headers. It is a formatting step only; all validation happened earlier.
func (e *TokenEndpoint) DoResponse(resp *Response, err error) ([]byte, int, http.Header) {
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")

	if err != nil {
		tokenErr := &oauth2.TokenError{}
		if !errors.As(err, &tokenErr) {
			tokenErr = oauth2.NewTokenError(oauth2.ErrorInvalidRequest, "request processing failed")
		}
		status := http.StatusBadRequest
		if tokenErr.Code == oauth2.ErrorInvalidClient {
			status = http.StatusUnauthorized
		}
		body, _ := json.Marshal(tokenErr)
		return body, status, headers
	}

	for key, values := range resp.Headers {
		for _, v := range values {
			headers.Add(key, v)
		}
	}
	body, _ := json.Marshal(resp.Args)
	return body, http.StatusOK, headers
}

// mapHelperError translates minting policy failures into their protocol
// error; protocol errors built by a helper pass through unchanged.
func (e *TokenEndpoint) mapHelperError(err error) error {
	tokenErr := &oauth2.TokenError{}
	if errors.As(err, &tokenErr) {
		return tokenErr
	}
	mintErr := &grants.MintingNotSupportedError{}
	if errors.As(err, &mintErr) {
		return oauth2.NewTokenError(oauth2.ErrorInvalidRequest, mintErr.Error())
	}
	switch {
	case errors.Is(err, grants.ScopeExceedsGrantErr):
		return oauth2.NewTokenError(oauth2.ErrorInvalidRequest, "Invalid refresh scopes")
	case errors.Is(err, grants.TokenRevokedErr),
		errors.Is(err, grants.TokenExhaustedErr),
		errors.Is(err, grants.TokenExpiredErr),
		errors.Is(err, grants.GrantExpiredErr),
		errors.Is(err, grants.TokenNotFoundErr):
		return oauth2.NewTokenError(oauth2.ErrorInvalidGrant, err.Error())
	}
	return oauth2.NewTokenError(oauth2.ErrorInvalidRequest, "request processing failed")
}

func unsupportedGrantType(gt oauth2.GrantType) *oauth2.TokenError {
	return oauth2.NewTokenError(oauth2.ErrorInvalidRequest, fmt.Sprintf("Unsupported grant_type: %s", gt))
}

// expiresIn converts a token's absolute expiry into the wire's relative
// seconds. Zero for tokens without expiry so the field is omitted.
func expiresIn(tok *grants.Token, now time.Time) int {
	if tok.ExpiresAt.IsZero() {
		return 0
	}
	return int(tok.ExpiresAt.Sub(now).Round(time.Second) / time.Second)
}
