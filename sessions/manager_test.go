package sessions_test

import (
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-token-server/grants"
	"github.com/jrsteele09/go-token-server/oauth2"
	"github.com/jrsteele09/go-token-server/sessions"
	"github.com/jrsteele09/go-token-server/token"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const (
	secretStr    = "1234"
	issuer       = "com.testissuer"
	sessionSalt  = "test-salt"
	testUserID   = "user-1"
	testClientID = "client-1"
)

type failingHandler struct{}

func (failingHandler) Mint(grants.Payload) (string, error) {
	return "", errors.New("signing failed")
}

func newTestManager(t *testing.T, opts ...sessions.ManagerOption) *sessions.Manager {
	t.Helper()
	handlers := token.NewHandlerSet(token.HandlerConfig{
		Issuer:          issuer,
		CodeLength:      32,
		AccessLifetime:  10 * time.Minute,
		RefreshLifetime: 24 * time.Hour,
	}, token.NewHMACSigner(secretStr))

	manager, err := sessions.NewManager(sessions.NewInMemoryRepo(), handlers, sessionSalt, opts...)
	require.NoError(t, err)
	return manager
}

func createSession(t *testing.T, m *sessions.Manager, scope ...string) string {
	t.Helper()
	branchID, err := m.CreateSession(
		sessions.AuthnEvent{UserID: testUserID, AuthnTime: time.Now(), AuthMethod: "password"},
		oauth2.AuthorizationRequest{ClientID: testClientID, Scope: scope},
		testUserID, testClientID, "oauth2",
	)
	require.NoError(t, err)
	return branchID
}

func TestCreateSessionDerivesDeterministicID(t *testing.T) {
	m := newTestManager(t)

	first := createSession(t, m, "openid")
	second := createSession(t, m, "openid")
	require.Equal(t, first, second)

	other, err := m.CreateSession(
		sessions.AuthnEvent{UserID: "user-2", AuthnTime: time.Now(), AuthMethod: "password"},
		oauth2.AuthorizationRequest{ClientID: testClientID, Scope: []string{"openid"}},
		"user-2", testClientID, "oauth2",
	)
	require.NoError(t, err)
	require.NotEqual(t, first, other)
}

func TestMintTokenIndexesValue(t *testing.T) {
	m := newTestManager(t)
	branchID := createSession(t, m, "openid", "email")

	code, err := m.MintToken(branchID, grants.MintRequest{
		Subject: testUserID,
		Class:   grants.AuthorizationCode,
		Handler: m.TokenHandler(grants.AuthorizationCode),
	})
	require.NoError(t, err)

	info, err := m.GetSessionInfoByToken(code.Value, grants.AuthorizationCode)
	require.NoError(t, err)
	require.Equal(t, branchID, info.BranchID)
	require.Equal(t, testUserID, info.UserID)
	require.Equal(t, testClientID, info.ClientID)

	// A lookup expecting a different class must not resolve.
	_, err = m.GetSessionInfoByToken(code.Value, grants.RefreshToken)
	require.ErrorIs(t, err, grants.TokenNotFoundErr)

	_, err = m.GetSessionInfoByToken("unknown-value", grants.AuthorizationCode)
	require.ErrorIs(t, err, sessions.TokenNotIndexedErr)
}

func TestRotateTokensRevokesConsumedAfterSuccess(t *testing.T) {
	m := newTestManager(t)
	branchID := createSession(t, m, "openid")

	refresh, err := m.MintToken(branchID, grants.MintRequest{
		Subject: testUserID,
		Class:   grants.RefreshToken,
		Handler: m.TokenHandler(grants.RefreshToken),
	})
	require.NoError(t, err)

	minted, err := m.RotateTokens(branchID, refresh, []grants.MintRequest{
		{Subject: testUserID, Class: grants.AccessToken, Handler: m.TokenHandler(grants.AccessToken), BasedOn: refresh},
		{Subject: testUserID, Class: grants.RefreshToken, Handler: m.TokenHandler(grants.RefreshToken), BasedOn: refresh},
	}, true)
	require.NoError(t, err)
	require.Len(t, minted, 2)
	require.NotEqual(t, refresh.Value, minted[1].Value)

	require.ErrorIs(t, m.TokenStatus(branchID, refresh.Value), grants.TokenRevokedErr)
	require.NoError(t, m.TokenStatus(branchID, minted[1].Value))
}

func TestRotateTokensFailedMintLeavesConsumedUsable(t *testing.T) {
	m := newTestManager(t)
	branchID := createSession(t, m, "openid")

	refresh, err := m.MintToken(branchID, grants.MintRequest{
		Subject: testUserID,
		Class:   grants.RefreshToken,
		Handler: m.TokenHandler(grants.RefreshToken),
	})
	require.NoError(t, err)

	_, err = m.RotateTokens(branchID, refresh, []grants.MintRequest{
		{Subject: testUserID, Class: grants.AccessToken, Handler: m.TokenHandler(grants.AccessToken), BasedOn: refresh},
		{Subject: testUserID, Class: grants.RefreshToken, Handler: failingHandler{}, BasedOn: refresh},
	}, true)
	require.Error(t, err)

	require.NoError(t, m.TokenStatus(branchID, refresh.Value))
}

func TestConcurrentRotationAtMostOneSuccess(t *testing.T) {
	m := newTestManager(t)
	branchID := createSession(t, m, "openid")

	refresh, err := m.MintToken(branchID, grants.MintRequest{
		Subject: testUserID,
		Class:   grants.RefreshToken,
		Handler: m.TokenHandler(grants.RefreshToken),
	})
	require.NoError(t, err)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.RotateTokens(branchID, refresh, []grants.MintRequest{
				{Subject: testUserID, Class: grants.AccessToken, Handler: m.TokenHandler(grants.AccessToken), BasedOn: refresh},
				{Subject: testUserID, Class: grants.RefreshToken, Handler: m.TokenHandler(grants.RefreshToken), BasedOn: refresh},
			}, true)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		require.ErrorIs(t, err, grants.TokenRevokedErr)
	}
	require.Equal(t, 1, successes)
}

func TestRevokeToken(t *testing.T) {
	m := newTestManager(t)
	branchID := createSession(t, m, "openid")

	access, err := m.MintToken(branchID, grants.MintRequest{
		Subject: testUserID,
		Class:   grants.AccessToken,
		Handler: m.TokenHandler(grants.AccessToken),
	})
	require.NoError(t, err)

	require.NoError(t, m.RevokeToken(branchID, access.Value))
	require.ErrorIs(t, m.TokenStatus(branchID, access.Value), grants.TokenRevokedErr)
}

func TestSessionRecordsAuthnAndRedirectURI(t *testing.T) {
	m := newTestManager(t)
	authnTime := time.Now().Truncate(time.Second)

	branchID, err := m.CreateSession(
		sessions.AuthnEvent{UserID: testUserID, AuthnTime: authnTime, AuthMethod: "password"},
		oauth2.AuthorizationRequest{
			ClientID:    testClientID,
			RedirectURI: "http://localhost:3000/callback",
			Scope:       []string{"openid"},
		},
		testUserID, testClientID, "oauth2",
	)
	require.NoError(t, err)

	info, err := m.GetSessionInfo(branchID)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:3000/callback", info.RedirectURI)
	require.Equal(t, testUserID, info.Authn.UserID)
	require.Equal(t, "password", info.Authn.AuthMethod)
	require.Equal(t, authnTime, info.Authn.AuthnTime)
}

func TestGrantLifetimeBoundsTokenLookups(t *testing.T) {
	now := time.Now()
	m := newTestManager(t,
		sessions.WithNowFunc(func() time.Time { return now }),
		sessions.WithGrantLifetime(time.Hour),
	)
	branchID := createSession(t, m, "openid")

	code, err := m.MintToken(branchID, grants.MintRequest{
		Subject: testUserID,
		Class:   grants.AuthorizationCode,
		Handler: m.TokenHandler(grants.AuthorizationCode),
	})
	require.NoError(t, err)
	require.NoError(t, m.TokenStatus(branchID, code.Value))

	now = now.Add(2 * time.Hour)
	require.ErrorIs(t, m.TokenStatus(branchID, code.Value), grants.GrantExpiredErr)

	_, err = m.MintToken(branchID, grants.MintRequest{
		Subject: testUserID,
		Class:   grants.AccessToken,
		Handler: m.TokenHandler(grants.AccessToken),
		BasedOn: code,
	})
	require.ErrorIs(t, err, grants.GrantExpiredErr)
}
