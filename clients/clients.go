package clients

import (
	"crypto"

	"github.com/jrsteele09/go-token-server/oauth2"
	"github.com/pkg/errors"
)

// Client is one record of the client directory. The directory is owned by an
// external registration service; this server only reads it.
type Client struct {
	// ID is the unique client identifier.
	ID string `json:"client_id"`

	// Secret authenticates confidential clients. Empty for public clients.
	Secret string `json:"client_secret,omitempty"`

	// RedirectURIs the client registered for the authorization endpoint.
	RedirectURIs []string `json:"redirect_uris,omitempty"`

	// AllowedScopes bounds the scope the client may be granted.
	AllowedScopes []string `json:"allowed_scopes,omitempty"`

	// GrantTypesSupported lists the grant types the client may use at the
	// token endpoint. Nil means all grant types are allowed; an empty,
	// non-nil list disables the client entirely.
	GrantTypesSupported []oauth2.GrantType `json:"grant_types_supported,omitempty"`

	// EndpointAuthMethod is the client authentication method registered for
	// the token endpoint, used as the default when a request could satisfy
	// more than one method.
	EndpointAuthMethod string `json:"endpoint_auth_method,omitempty"`

	// RevokeRefreshOnIssue overrides the server-wide rotation policy for this
	// client. Nil means use the server default.
	RevokeRefreshOnIssue *bool `json:"revoke_refresh_on_issue,omitempty"`

	// PublicKey is the client's registered key for private_key_jwt
	// authentication.
	PublicKey crypto.PublicKey `json:"-"`
}

// SupportsGrantType reports whether the client may use the grant type at the
// token endpoint.
func (c *Client) SupportsGrantType(gt oauth2.GrantType) bool {
	if c.GrantTypesSupported == nil {
		return true
	}
	for _, t := range c.GrantTypesSupported {
		if t == gt {
			return true
		}
	}
	return false
}

// ValidateScopes checks the requested scope against the client's allowed
// scopes. An empty allowed list accepts any scope.
func (c *Client) ValidateScopes(scope []string) error {
	if len(c.AllowedScopes) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(c.AllowedScopes))
	for _, s := range c.AllowedScopes {
		allowed[s] = struct{}{}
	}
	for _, s := range scope {
		if _, ok := allowed[s]; !ok {
			return errors.Wrapf(InvalidScopeErr, "scope %q", s)
		}
	}
	return nil
}

// IsPublic reports whether the client has no secret registered.
func (c *Client) IsPublic() bool {
	return c.Secret == ""
}
