package oauth2

// TokenResponse represents the response from an OAuth2 token request.
// This is the standard OAuth2 token endpoint response format as defined in RFC 6749.
// Returned from the /token endpoint for all grant types.
type TokenResponse struct {
	// AccessToken is the token used to access protected resources.
	// Usage: Include in Authorization header: "Bearer <access_token>"
	// Lifespan: Short-lived (typically 15 minutes - 1 hour)
	AccessToken string `json:"access_token,omitempty"`

	// TokenType indicates how to use the access token (always "Bearer").
	// Standard: OAuth2 spec requires this field
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the lifetime in seconds of the access token.
	// Note: This is a hint - for JWT tokens the authority is the "exp" claim
	ExpiresIn int `json:"expires_in,omitempty"`

	// RefreshToken is a token used to obtain new access tokens.
	// Only present: For grant types that permit refresh token issuance
	// Security: Should be stored securely, rotates on each use
	RefreshToken string `json:"refresh_token,omitempty"`

	// Scope indicates the access token's granted permissions.
	// Example: "openid profile email"
	// Note: May be narrower than requested
	Scope string `json:"scope,omitempty"`
}
