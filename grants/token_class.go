package grants

// TokenClass is the closed set of credential classes a grant can issue.
type TokenClass string

const (
	// AuthorizationCode is the short lived, single use code handed to the
	// client by the authorization endpoint.
	AuthorizationCode TokenClass = "authorization_code"

	// AccessToken is the credential presented to resource servers.
	AccessToken TokenClass = "access_token"

	// RefreshToken is the long lived credential used to mint new access
	// tokens without re-authenticating the user.
	RefreshToken TokenClass = "refresh_token"
)

// Valid reports whether c is one of the known token classes.
func (c TokenClass) Valid() bool {
	switch c {
	case AuthorizationCode, AccessToken, RefreshToken:
		return true
	}
	return false
}
