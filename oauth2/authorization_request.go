package oauth2

// AuthorizationRequest carries the parameters of the authorization request a
// session was created for. The authorization endpoint itself is an external
// collaborator; the session layer only needs the binding material.
type AuthorizationRequest struct {
	ClientID    string
	RedirectURI string
	Scope       []string
	State       string
}
