package clients

import "errors"

var (
	ClientNotFoundErr = errors.New("client not found")
	InvalidScopeErr   = errors.New("invalid scope")
)

// Repo is the read-only client directory consumed by the token endpoint.
type Repo interface {
	Get(clientID string) (*Client, error)
}
