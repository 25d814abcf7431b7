package grants_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/jrsteele09/go-token-server/grants"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const (
	testUserID   = "user-1"
	testClientID = "client-1"
)

// staticHandler mints predictable values so tests can assert on them.
type staticHandler struct {
	prefix string
	count  int
}

func (h *staticHandler) Mint(grants.Payload) (string, error) {
	h.count++
	return fmt.Sprintf("%s-%d", h.prefix, h.count), nil
}

// failingHandler always fails, standing in for a signer error.
type failingHandler struct{}

func (failingHandler) Mint(grants.Payload) (string, error) {
	return "", errors.New("signing failed")
}

func defaultRules() map[grants.TokenClass]grants.UsageRules {
	return map[grants.TokenClass]grants.UsageRules{
		grants.AuthorizationCode: {
			ExpiresIn:       5 * time.Minute,
			MaxUsage:        1,
			SupportsMinting: []grants.TokenClass{grants.AccessToken, grants.RefreshToken},
		},
		grants.AccessToken: {ExpiresIn: 10 * time.Minute},
		grants.RefreshToken: {
			ExpiresIn:       24 * time.Hour,
			SupportsMinting: []grants.TokenClass{grants.AccessToken, grants.RefreshToken},
		},
	}
}

func newTestGrant(nowFunc func() time.Time) *grants.Grant {
	opts := []grants.GrantOption{}
	if nowFunc != nil {
		opts = append(opts, grants.WithNowFunc(nowFunc))
	}
	return grants.NewGrant(testUserID, testClientID, []string{"openid", "email"}, defaultRules(), opts...)
}

func TestMintRootAndChildTokens(t *testing.T) {
	g := newTestGrant(nil)
	handler := &staticHandler{prefix: "code"}

	code, err := g.MintToken(grants.MintRequest{
		Subject: testUserID,
		Class:   grants.AuthorizationCode,
		Handler: handler,
	})
	require.NoError(t, err)
	require.Equal(t, grants.AuthorizationCode, code.Class)
	require.Empty(t, code.BasedOn)
	require.Equal(t, []string{"openid", "email"}, code.Scope)
	require.False(t, code.ExpiresAt.IsZero())

	access, err := g.MintToken(grants.MintRequest{
		Subject: testUserID,
		Class:   grants.AccessToken,
		Handler: &staticHandler{prefix: "at"},
		BasedOn: code,
	})
	require.NoError(t, err)
	require.Equal(t, code.ID, access.BasedOn)
	require.Equal(t, 1, code.UsageCount)
}

func TestMintFromRevokedParentNotSupported(t *testing.T) {
	g := newTestGrant(nil)
	code, err := g.MintToken(grants.MintRequest{
		Subject: testUserID,
		Class:   grants.AuthorizationCode,
		Handler: &staticHandler{prefix: "code"},
	})
	require.NoError(t, err)
	require.NoError(t, g.RevokeToken(code.Value))

	_, err = g.MintToken(grants.MintRequest{
		Subject: testUserID,
		Class:   grants.AccessToken,
		Handler: &staticHandler{prefix: "at"},
		BasedOn: code,
	})
	mintErr := &grants.MintingNotSupportedError{}
	require.ErrorAs(t, err, &mintErr)
	require.Equal(t, "Minting of access_token not supported", err.Error())
}

func TestMintClassOutsideParentRulesNotSupported(t *testing.T) {
	g := newTestGrant(nil)
	access, err := g.MintToken(grants.MintRequest{
		Subject: testUserID,
		Class:   grants.AccessToken,
		Handler: &staticHandler{prefix: "at"},
	})
	require.NoError(t, err)

	// Access tokens cannot mint anything under the default rules.
	_, err = g.MintToken(grants.MintRequest{
		Subject: testUserID,
		Class:   grants.AccessToken,
		Handler: &staticHandler{prefix: "at2"},
		BasedOn: access,
	})
	require.Equal(t, "Minting of access_token not supported", err.Error())
}

func TestMintScopeMustBeSubsetOfGrant(t *testing.T) {
	g := newTestGrant(nil)
	_, err := g.MintToken(grants.MintRequest{
		Subject: testUserID,
		Class:   grants.AccessToken,
		Handler: &staticHandler{prefix: "at"},
		Scope:   []string{"openid", "profile"},
	})
	require.ErrorIs(t, err, grants.ScopeExceedsGrantErr)
	require.Empty(t, g.Tokens())
}

func TestMintTokensAllOrNothing(t *testing.T) {
	g := newTestGrant(nil)
	code, err := g.MintToken(grants.MintRequest{
		Subject: testUserID,
		Class:   grants.AuthorizationCode,
		Handler: &staticHandler{prefix: "code"},
	})
	require.NoError(t, err)

	// Second request in the batch fails signing: the first must not attach.
	_, err = g.MintTokens([]grants.MintRequest{
		{Subject: testUserID, Class: grants.AccessToken, Handler: &staticHandler{prefix: "at"}, BasedOn: code},
		{Subject: testUserID, Class: grants.RefreshToken, Handler: failingHandler{}, BasedOn: code},
	})
	require.Error(t, err)
	require.Len(t, g.Tokens(), 1)
	require.Equal(t, 0, code.UsageCount)

	// The same batch with working handlers attaches both.
	minted, err := g.MintTokens([]grants.MintRequest{
		{Subject: testUserID, Class: grants.AccessToken, Handler: &staticHandler{prefix: "at"}, BasedOn: code},
		{Subject: testUserID, Class: grants.RefreshToken, Handler: &staticHandler{prefix: "rt"}, BasedOn: code},
	})
	require.NoError(t, err)
	require.Len(t, minted, 2)
	require.Equal(t, 2, code.UsageCount)
}

func TestTokenStatusLifecycle(t *testing.T) {
	now := time.Now()
	g := newTestGrant(func() time.Time { return now })

	code, err := g.MintToken(grants.MintRequest{
		Subject: testUserID,
		Class:   grants.AuthorizationCode,
		Handler: &staticHandler{prefix: "code"},
	})
	require.NoError(t, err)
	require.NoError(t, g.TokenStatus(code.Value, now))

	// Expiry is evaluated lazily against the supplied clock.
	require.ErrorIs(t, g.TokenStatus(code.Value, now.Add(6*time.Minute)), grants.TokenExpiredErr)

	// Consuming the code exhausts its single use.
	_, err = g.MintToken(grants.MintRequest{
		Subject: testUserID,
		Class:   grants.AccessToken,
		Handler: &staticHandler{prefix: "at"},
		BasedOn: code,
	})
	require.NoError(t, err)
	require.ErrorIs(t, g.TokenStatus(code.Value, now), grants.TokenExhaustedErr)

	require.NoError(t, g.RevokeToken(code.Value))
	require.ErrorIs(t, g.TokenStatus(code.Value, now), grants.TokenRevokedErr)

	require.ErrorIs(t, g.TokenStatus("no-such-value", now), grants.TokenNotFoundErr)
}

func TestRevokeDoesNotCascade(t *testing.T) {
	g := newTestGrant(nil)
	refresh, err := g.MintToken(grants.MintRequest{
		Subject: testUserID,
		Class:   grants.RefreshToken,
		Handler: &staticHandler{prefix: "rt"},
	})
	require.NoError(t, err)

	access, err := g.MintToken(grants.MintRequest{
		Subject: testUserID,
		Class:   grants.AccessToken,
		Handler: &staticHandler{prefix: "at"},
		BasedOn: refresh,
	})
	require.NoError(t, err)

	require.NoError(t, g.RevokeToken(refresh.Value))
	require.NoError(t, g.TokenStatus(access.Value, time.Now()))
}

func TestGetTokenByValueAndID(t *testing.T) {
	g := newTestGrant(nil)
	tok, err := g.MintToken(grants.MintRequest{
		Subject: testUserID,
		Class:   grants.AccessToken,
		Handler: &staticHandler{prefix: "at"},
	})
	require.NoError(t, err)

	byValue, err := g.GetToken(tok.Value)
	require.NoError(t, err)
	require.Same(t, tok, byValue)

	byID, err := g.GetTokenByID(tok.ID)
	require.NoError(t, err)
	require.Same(t, tok, byID)

	_, err = g.GetToken("missing")
	require.ErrorIs(t, err, grants.TokenNotFoundErr)
}

func TestExpiredGrantRejectsStatusAndMinting(t *testing.T) {
	now := time.Now()
	g := grants.NewGrant(testUserID, testClientID, []string{"openid"}, defaultRules(),
		grants.WithNowFunc(func() time.Time { return now }),
		grants.WithExpiresIn(time.Hour),
	)

	code, err := g.MintToken(grants.MintRequest{
		Subject: testUserID,
		Class:   grants.AuthorizationCode,
		Handler: &staticHandler{prefix: "code"},
	})
	require.NoError(t, err)
	require.NoError(t, g.TokenStatus(code.Value, now))

	now = now.Add(2 * time.Hour)
	require.ErrorIs(t, g.TokenStatus(code.Value, now), grants.GrantExpiredErr)

	_, err = g.MintToken(grants.MintRequest{
		Subject: testUserID,
		Class:   grants.AccessToken,
		Handler: &staticHandler{prefix: "at"},
		BasedOn: code,
	})
	require.ErrorIs(t, err, grants.GrantExpiredErr)
}
