package token_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-token-server/grants"
	"github.com/jrsteele09/go-token-server/token"
	"github.com/stretchr/testify/require"
)

const (
	secretStr = "1234"
	issuer    = "com.testissuer"
)

func parseClaims(t *testing.T, signer token.Signer, value string) jwt.MapClaims {
	t.Helper()
	parsed, err := jwt.Parse(value, signer.GetVerificationKey)
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	return claims
}

func TestJWTHandlerClaims(t *testing.T) {
	signer := token.NewHMACSigner(secretStr)
	handler := token.NewJWTHandler(signer, issuer,
		token.WithLifetime(10*time.Minute),
		token.WithAudience("api"),
	)

	value, err := handler.Mint(grants.Payload{
		SessionID: "session-1",
		Subject:   "user-1",
		ClientID:  "client-1",
		Scope:     []string{"openid", "email"},
		Class:     grants.AccessToken,
	})
	require.NoError(t, err)

	claims := parseClaims(t, signer, value)
	require.Equal(t, issuer, claims["iss"])
	require.Equal(t, "user-1", claims["sub"])
	require.Equal(t, "client-1", claims["client_id"])
	require.Equal(t, "session-1", claims["sid"])
	require.Equal(t, "access_token", claims["usage"])
	require.Equal(t, "openid email", claims["scope"])
	require.NotEmpty(t, claims["jti"])

	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(10*time.Minute), exp.Time, 5*time.Second)
}

func TestJWTHandlerClaimsProfile(t *testing.T) {
	signer := token.NewHMACSigner(secretStr)
	handler := token.NewJWTHandler(signer, issuer,
		token.WithClaimsProfile(func(claims jwt.MapClaims, p grants.Payload) {
			claims["department"] = "engineering"
		}),
	)

	value, err := handler.Mint(grants.Payload{Subject: "user-1", Class: grants.AccessToken})
	require.NoError(t, err)

	claims := parseClaims(t, signer, value)
	require.Equal(t, "engineering", claims["department"])
}

func TestJWTHandlerUniqueJTI(t *testing.T) {
	signer := token.NewHMACSigner(secretStr)
	handler := token.NewJWTHandler(signer, issuer)

	first, err := handler.Mint(grants.Payload{Subject: "user-1", Class: grants.AccessToken})
	require.NoError(t, err)
	second, err := handler.Mint(grants.Payload{Subject: "user-1", Class: grants.AccessToken})
	require.NoError(t, err)

	require.NotEqual(t,
		parseClaims(t, signer, first)["jti"],
		parseClaims(t, signer, second)["jti"],
	)
}

func TestOpaqueHandlerValues(t *testing.T) {
	handler := token.NewOpaqueHandler(32)

	first, err := handler.Mint(grants.Payload{})
	require.NoError(t, err)
	require.Len(t, first, 64) // 32 bytes hex encoded

	second, err := handler.Mint(grants.Payload{})
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestNewHandlerSetCoversAllClasses(t *testing.T) {
	signer := token.NewHMACSigner(secretStr)
	handlers := token.NewHandlerSet(token.HandlerConfig{
		Issuer:          issuer,
		CodeLength:      32,
		AccessLifetime:  10 * time.Minute,
		RefreshLifetime: 24 * time.Hour,
	}, signer)

	require.Contains(t, handlers, grants.AuthorizationCode)
	require.Contains(t, handlers, grants.AccessToken)
	require.Contains(t, handlers, grants.RefreshToken)
}
