package config

import "golang.org/x/time/rate"

type SecurityConfig interface {
	GetSigningSecret() string
	GetSessionSalt() string
	GetEnableRateLimiting() bool
	GetClientRateLimit() rate.Limit
	GetClientRateBurst() int
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetSigningSecret returns the HMAC secret signing JWT token values. A real
// deployment must set TOKEN_SIGNING_SECRET.
func (Security) GetSigningSecret() string {
	return GetEnv("TOKEN_SIGNING_SECRET", "dev-signing-secret")
}

// GetSessionSalt returns the salt used when deriving session ids.
func (Security) GetSessionSalt() string {
	return GetEnv("SESSION_SALT", "dev-session-salt")
}

func (Security) GetEnableRateLimiting() bool {
	return GetEnv("ENABLE_RATE_LIMITING", "") == "true"
}

// GetClientRateLimit is the steady-state request rate allowed per client.
func (Security) GetClientRateLimit() rate.Limit {
	return rate.Limit(10)
}

func (Security) GetClientRateBurst() int {
	return 20
}
