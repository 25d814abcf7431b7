package token

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-token-server/grants"
	"github.com/jrsteele09/go-token-server/oauth2"
	"github.com/pkg/errors"
)

// HandlerSet maps each token class to the handler that generates its values.
// Built once at startup from configuration; there is no runtime class lookup.
type HandlerSet map[grants.TokenClass]grants.TokenHandler

// ClaimsProfile customises the claim set of a JWT token value before signing.
type ClaimsProfile func(claims jwt.MapClaims, p grants.Payload)

// JWTHandler mints JWT-encoded token values.
type JWTHandler struct {
	signer   Signer
	issuer   string
	audience []string
	lifetime time.Duration
	profile  ClaimsProfile
	nowFunc  func() time.Time
}

// JWTHandlerOption modifies a JWTHandler instance.
type JWTHandlerOption func(*JWTHandler)

// WithLifetime sets the exp claim offset of minted values.
func WithLifetime(d time.Duration) JWTHandlerOption {
	return func(h *JWTHandler) {
		h.lifetime = d
	}
}

// WithAudience sets the default aud claim of minted values.
func WithAudience(aud ...string) JWTHandlerOption {
	return func(h *JWTHandler) {
		h.audience = aud
	}
}

// WithClaimsProfile installs a hook that can add or reshape claims.
func WithClaimsProfile(p ClaimsProfile) JWTHandlerOption {
	return func(h *JWTHandler) {
		h.profile = p
	}
}

// WithNowFunc sets the time source (primarily for testing).
func WithNowFunc(now func() time.Time) JWTHandlerOption {
	return func(h *JWTHandler) {
		h.nowFunc = now
	}
}

// NewJWTHandler creates a handler that signs values with the given signer.
func NewJWTHandler(signer Signer, issuer string, options ...JWTHandlerOption) *JWTHandler {
	h := &JWTHandler{
		signer:   signer,
		issuer:   issuer,
		lifetime: time.Hour,
		nowFunc:  time.Now,
	}
	for _, opt := range options {
		opt(h)
	}
	return h
}

// Mint implements grants.TokenHandler.
func (h *JWTHandler) Mint(p grants.Payload) (string, error) {
	now := h.nowFunc()

	aud := p.Audience
	if len(aud) == 0 {
		aud = h.audience
	}

	claims := jwt.MapClaims{
		"iss":       h.issuer,
		"sub":       p.Subject,
		"client_id": p.ClientID,
		"sid":       p.SessionID,
		"usage":     string(p.Class),
		"iat":       now.Unix(),
		"exp":       now.Add(h.lifetime).Unix(),
		"jti":       uuid.New().String(),
	}
	if len(aud) > 0 {
		claims["aud"] = aud
	}
	if len(p.Scope) > 0 {
		claims["scope"] = oauth2.JoinScope(p.Scope)
	}
	if h.profile != nil {
		h.profile(claims, p)
	}

	value, err := h.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[JWTHandler.Mint] signer.Sign")
	}
	return value, nil
}

// OpaqueHandler mints random opaque token values.
type OpaqueHandler struct {
	length int
}

// NewOpaqueHandler creates a handler generating values of length random bytes.
func NewOpaqueHandler(length int) *OpaqueHandler {
	if length <= 0 {
		length = 32 // 256 bits
	}
	return &OpaqueHandler{length: length}
}

// Mint implements grants.TokenHandler.
func (h *OpaqueHandler) Mint(grants.Payload) (string, error) {
	tokenBytes := make([]byte, h.length)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", errors.Wrap(err, "[OpaqueHandler.Mint] rand.Read")
	}
	return hex.EncodeToString(tokenBytes), nil
}

// HandlerConfig configures the default handler set: opaque authorization
// codes and JWT-encoded access and refresh tokens.
type HandlerConfig struct {
	Issuer          string
	Audience        []string
	CodeLength      int
	AccessLifetime  time.Duration
	RefreshLifetime time.Duration
	AccessProfile   ClaimsProfile
}

// NewHandlerSet builds the handler registry for all token classes.
func NewHandlerSet(cfg HandlerConfig, signer Signer) HandlerSet {
	accessOpts := []JWTHandlerOption{WithLifetime(cfg.AccessLifetime), WithAudience(cfg.Audience...)}
	if cfg.AccessProfile != nil {
		accessOpts = append(accessOpts, WithClaimsProfile(cfg.AccessProfile))
	}
	return HandlerSet{
		grants.AuthorizationCode: NewOpaqueHandler(cfg.CodeLength),
		grants.AccessToken:       NewJWTHandler(signer, cfg.Issuer, accessOpts...),
		grants.RefreshToken:      NewJWTHandler(signer, cfg.Issuer, WithLifetime(cfg.RefreshLifetime), WithAudience(cfg.Audience...)),
	}
}
