package oauth2

import (
	"net/url"
	"strings"
)

// TokenRequest holds parameters for the OAuth2 token request.
// This represents the request body sent to the /token endpoint.
// Supports grant types: authorization_code, refresh_token, client_credentials, password
type TokenRequest struct {
	// GrantType selects the issuance flow for this request.
	// Required: Yes
	// Example: "authorization_code"
	GrantType GrantType

	// ClientID identifies the OAuth2 client making the request.
	// Required: Yes (unless carried in the client assertion or Basic header)
	// Example: "web-app-client"
	ClientID string

	// ClientSecret is the secret credential for confidential clients.
	// Required: Yes for confidential clients, No for public clients
	// Security: Never log or expose this value
	ClientSecret string

	// Code is the authorization code received from the authorization endpoint.
	// Required: Yes (only for authorization_code grant)
	// Usage: Exchanged once for tokens, then becomes invalid
	Code string

	// RedirectURI must match the URI the authorization request was issued for.
	// Required: Yes (only for authorization_code grant)
	RedirectURI string

	// RefreshToken is used to obtain new access tokens without re-authentication.
	// Required: Yes (only for refresh_token grant)
	// Behavior: Rotated - old refresh token may be revoked, new one issued
	RefreshToken string

	// Scope is the requested scope for the new tokens. For the refresh_token
	// grant it may only narrow (or restore) the scope of the original grant.
	Scope []string

	// Username and Password carry the resource-owner credentials for the
	// password grant.
	Username string
	Password string

	// ClientAssertion and ClientAssertionType carry a signed JWT used for
	// client_secret_jwt / private_key_jwt client authentication.
	ClientAssertion     string
	ClientAssertionType string

	// AuthorizationHeader is the raw Authorization header of the request, used
	// for client_secret_basic authentication. Populated by the transport.
	AuthorizationHeader string
}

// ParseTokenRequest builds a TokenRequest from url-encoded form values, the
// wire format of the token endpoint.
func ParseTokenRequest(form url.Values) TokenRequest {
	return TokenRequest{
		GrantType:           GrantType(form.Get("grant_type")),
		ClientID:            form.Get("client_id"),
		ClientSecret:        form.Get("client_secret"),
		Code:                form.Get("code"),
		RedirectURI:         form.Get("redirect_uri"),
		RefreshToken:        form.Get("refresh_token"),
		Scope:               SplitScope(form.Get("scope")),
		Username:            form.Get("username"),
		Password:            form.Get("password"),
		ClientAssertion:     form.Get("client_assertion"),
		ClientAssertionType: form.Get("client_assertion_type"),
	}
}

// SplitScope splits a space separated scope string into its values.
func SplitScope(scope string) []string {
	if strings.TrimSpace(scope) == "" {
		return nil
	}
	return strings.Fields(scope)
}

// JoinScope renders scope values into the space separated wire form.
func JoinScope(scope []string) string {
	return strings.Join(scope, " ")
}
