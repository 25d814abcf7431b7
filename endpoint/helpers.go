package endpoint

import (
	"github.com/jrsteele09/go-token-server/grants"
	"github.com/jrsteele09/go-token-server/oauth2"
	"github.com/jrsteele09/go-token-server/sessions"
	"github.com/jrsteele09/go-token-server/users"
)

// Helper registry names. The authorization_code grant is served by the
// access token helper; the remaining helpers are named after their grant.
const (
	AccessTokenHelperName       = "access_token"
	RefreshTokenHelperName      = "refresh_token"
	ClientCredentialsHelperName = "client_credentials"
	PasswordHelperName          = "password"
)

// GrantTypeHelper implements the issuance logic of one grant type. Helpers
// receive a fully parsed and authenticated request and return the response
// arguments; any minting failure leaves the grant without partially attached
// tokens.
type GrantTypeHelper interface {
	Process(req *Request, issueRefresh bool) (*oauth2.TokenResponse, error)
}

func defaultHelpers(e *TokenEndpoint) map[string]GrantTypeHelper {
	return map[string]GrantTypeHelper{
		AccessTokenHelperName:       &AuthorizationCodeHelper{endpoint: e},
		RefreshTokenHelperName:      &RefreshTokenHelper{endpoint: e},
		ClientCredentialsHelperName: &ClientCredentialsHelper{endpoint: e},
		PasswordHelperName:          &ROPCHelper{endpoint: e},
	}
}

// helperNameFor maps a wire grant type to its registry entry.
func helperNameFor(gt oauth2.GrantType) (string, bool) {
	switch gt {
	case oauth2.AuthorizationCodeGrant:
		return AccessTokenHelperName, true
	case oauth2.RefreshTokenGrant:
		return RefreshTokenHelperName, true
	case oauth2.ClientCredentialsGrant:
		return ClientCredentialsHelperName, true
	case oauth2.PasswordGrant:
		return PasswordHelperName, true
	}
	return "", false
}

// AuthorizationCodeHelper exchanges an authorization code for an access
// token and, when permitted, a refresh token.
type AuthorizationCodeHelper struct {
	endpoint *TokenEndpoint
}

// Process mints the access token based on the presented code. A refresh
// token is minted only when issueRefresh is set, the code's usage rules
// allow it and the client is registered for the refresh_token grant;
// otherwise it is silently omitted.
func (h *AuthorizationCodeHelper) Process(req *Request, issueRefresh bool) (*oauth2.TokenResponse, error) {
	e := h.endpoint
	code := req.GrantToken

	mints := []grants.MintRequest{{
		Subject: req.Session.UserID,
		Class:   grants.AccessToken,
		Handler: e.sessions.TokenHandler(grants.AccessToken),
		BasedOn: code,
		Scope:   code.Scope,
	}}
	if issueRefresh && code.UsageRules.CanMint(grants.RefreshToken) && req.Client.SupportsGrantType(oauth2.RefreshTokenGrant) {
		mints = append(mints, grants.MintRequest{
			Subject: req.Session.UserID,
			Class:   grants.RefreshToken,
			Handler: e.sessions.TokenHandler(grants.RefreshToken),
			BasedOn: code,
			Scope:   code.Scope,
		})
	}

	minted, err := e.sessions.MintTokens(req.Session.BranchID, mints)
	if err != nil {
		return nil, err
	}

	resp := &oauth2.TokenResponse{
		AccessToken: minted[0].Value,
		TokenType:   oauth2.TokenTypeBearer,
		ExpiresIn:   expiresIn(minted[0], e.nowFunc()),
		Scope:       oauth2.JoinScope(minted[0].Scope),
	}
	if len(minted) > 1 {
		resp.RefreshToken = minted[1].Value
	}
	return resp, nil
}

// RefreshTokenHelper exchanges a refresh token for a new access token and a
// rotated refresh token.
type RefreshTokenHelper struct {
	endpoint *TokenEndpoint
}

// Process mints the replacement tokens based on the consumed refresh token.
// A requested scope may only narrow (or restore) the grant's original
// scope. When rotation policy demands it, the consumed token is revoked
// after the new refresh token minted successfully.
func (h *RefreshTokenHelper) Process(req *Request, issueRefresh bool) (*oauth2.TokenResponse, error) {
	e := h.endpoint
	consumed := req.GrantToken
	grant := req.Session.Grant

	scope := req.Scope
	if len(scope) == 0 {
		scope = consumed.Scope
	} else if !scopeWithin(scope, grant.Scope) {
		return nil, oauth2.NewTokenError(oauth2.ErrorInvalidRequest, "Invalid refresh scopes")
	}

	mints := []grants.MintRequest{{
		Subject: req.Session.UserID,
		Class:   grants.AccessToken,
		Handler: e.sessions.TokenHandler(grants.AccessToken),
		BasedOn: consumed,
		Scope:   scope,
	}}
	rotateRefresh := issueRefresh && consumed.UsageRules.CanMint(grants.RefreshToken)
	if rotateRefresh {
		mints = append(mints, grants.MintRequest{
			Subject: req.Session.UserID,
			Class:   grants.RefreshToken,
			Handler: e.sessions.TokenHandler(grants.RefreshToken),
			BasedOn: consumed,
			Scope:   scope,
		})
	}

	revoke := e.revokeRefreshOnIssue
	if req.Client.RevokeRefreshOnIssue != nil {
		revoke = *req.Client.RevokeRefreshOnIssue
	}

	minted, err := e.sessions.RotateTokens(req.Session.BranchID, consumed, mints, revoke && rotateRefresh)
	if err != nil {
		return nil, err
	}

	resp := &oauth2.TokenResponse{
		AccessToken: minted[0].Value,
		TokenType:   oauth2.TokenTypeBearer,
		ExpiresIn:   expiresIn(minted[0], e.nowFunc()),
		Scope:       oauth2.JoinScope(minted[0].Scope),
	}
	if len(minted) > 1 {
		resp.RefreshToken = minted[1].Value
	}
	return resp, nil
}

// ClientCredentialsHelper issues machine-to-machine access tokens with no
// user context and no refresh token.
type ClientCredentialsHelper struct {
	endpoint *TokenEndpoint
}

func (h *ClientCredentialsHelper) Process(req *Request, _ bool) (*oauth2.TokenResponse, error) {
	if err := req.Client.ValidateScopes(req.Scope); err != nil {
		return nil, oauth2.NewTokenError(oauth2.ErrorInvalidRequest, err.Error())
	}
	return h.endpoint.issueDirect(req, req.Client.ID, string(oauth2.ClientCredentialsGrant))
}

// ROPCHelper issues access tokens against resource-owner credentials. The
// credential store is an external collaborator; without one the grant is
// unsupported. No refresh token is issued.
type ROPCHelper struct {
	endpoint *TokenEndpoint
}

func (h *ROPCHelper) Process(req *Request, _ bool) (*oauth2.TokenResponse, error) {
	e := h.endpoint
	if e.users == nil {
		return nil, unsupportedGrantType(oauth2.PasswordGrant)
	}
	if req.Username == "" || req.Password == "" {
		return nil, oauth2.NewTokenError(oauth2.ErrorInvalidRequest, "missing username or password")
	}

	user, err := e.users.GetByUsername(req.Username)
	if err != nil || !users.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, oauth2.NewTokenError(oauth2.ErrorInvalidGrant, "invalid resource owner credentials")
	}
	if user.Blocked {
		return nil, oauth2.NewTokenError(oauth2.ErrorInvalidGrant, "user is blocked")
	}
	if err := req.Client.ValidateScopes(req.Scope); err != nil {
		return nil, oauth2.NewTokenError(oauth2.ErrorInvalidRequest, err.Error())
	}
	return e.issueDirect(req, user.ID, string(oauth2.PasswordGrant))
}

// issueDirect creates a session for a grant that carries no prior token and
// mints a root access token from it. Shared by the client_credentials and
// password helpers; the response carries no refresh token.
func (e *TokenEndpoint) issueDirect(req *Request, subject, subType string) (*oauth2.TokenResponse, error) {
	now := e.nowFunc()
	branchID, err := e.sessions.CreateSession(
		sessions.AuthnEvent{UserID: subject, AuthnTime: now, AuthMethod: string(req.AuthMethod)},
		oauth2.AuthorizationRequest{ClientID: req.Client.ID, Scope: req.Scope},
		subject, req.Client.ID, subType,
	)
	if err != nil {
		return nil, err
	}
	info, err := e.sessions.GetSessionInfo(branchID)
	if err != nil {
		return nil, err
	}

	access, err := e.sessions.MintToken(branchID, grants.MintRequest{
		Subject: subject,
		Class:   grants.AccessToken,
		Handler: e.sessions.TokenHandler(grants.AccessToken),
		Scope:   info.Grant.Scope,
	})
	if err != nil {
		return nil, err
	}

	return &oauth2.TokenResponse{
		AccessToken: access.Value,
		TokenType:   oauth2.TokenTypeBearer,
		ExpiresIn:   expiresIn(access, e.nowFunc()),
		Scope:       oauth2.JoinScope(access.Scope),
	}, nil
}

func scopeWithin(sub, super []string) bool {
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
