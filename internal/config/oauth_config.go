package config

import "time"

type OAuthConfig interface {
	GetAuthCodeTimeout() time.Duration
	GetCodeGenerationLength() int
	GetDefaultAccessTokenExpiry() time.Duration
	GetDefaultRefreshTokenExpiry() time.Duration
	GetGrantExpiry() time.Duration
	GetIssueRefreshTokens() bool
	GetRevokeRefreshOnIssue() bool
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetAuthCodeTimeout() time.Duration {
	return 5 * time.Minute
}

func (OAuth) GetCodeGenerationLength() int {
	return 32 // 32 bytes = 256 bits
}

func (OAuth) GetDefaultAccessTokenExpiry() time.Duration {
	return 10 * time.Minute
}

func (OAuth) GetDefaultRefreshTokenExpiry() time.Duration {
	return 24 * time.Hour
}

func (OAuth) GetGrantExpiry() time.Duration {
	return 12 * time.Hour
}

func (OAuth) GetIssueRefreshTokens() bool {
	return true
}

// GetRevokeRefreshOnIssue is the server-wide rotation policy: whether a
// consumed refresh token is revoked once its replacement is issued. Clients
// may override it per registration.
func (OAuth) GetRevokeRefreshOnIssue() bool {
	return true
}
