package oauth2

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
// Determines what credentials are required to obtain tokens.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges an authorization code for tokens.
	// Used in: Standard Authorization Code Flow
	// Token request includes: code, client_id, client_secret, redirect_uri
	// Returns: access_token, refresh_token (if permitted)
	AuthorizationCodeGrant GrantType = "authorization_code"

	// RefreshTokenGrant exchanges a refresh token for new tokens.
	// Used in: Token refresh flow (get new access token without re-authenticating user)
	// Token request includes: refresh_token, client_id, client_secret, optional scope
	// Returns: new access_token and a rotated refresh_token
	RefreshTokenGrant GrantType = "refresh_token"

	// ClientCredentialsGrant allows machine-to-machine authentication.
	// Used in: Backend service authentication (no user context)
	// Token request includes: client_id, client_secret, scope
	// Returns: access_token (no refresh_token)
	ClientCredentialsGrant GrantType = "client_credentials"

	// PasswordGrant exchanges resource-owner credentials for tokens (ROPC).
	// Token request includes: username, password, client credentials, optional scope
	// Returns: access_token (no refresh_token)
	PasswordGrant GrantType = "password"
)

// ClientAssertionTypeJWTBearer is the assertion type value used for JWT based
// client authentication (client_secret_jwt / private_key_jwt).
const ClientAssertionTypeJWTBearer = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"

// TokenTypeBearer is the only token type this server issues.
const TokenTypeBearer = "Bearer"
