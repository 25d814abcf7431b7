package sessions

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"sync"
	"time"

	"github.com/jrsteele09/go-token-server/grants"
	"github.com/jrsteele09/go-token-server/oauth2"
	"github.com/jrsteele09/go-token-server/token"
	"github.com/pkg/errors"
)

// Manager indexes grants by session id and by any issued token value, and
// orchestrates creation, lookup, minting and revocation. It is the only
// owner of the session→grant and token-value→grant indexes.
type Manager struct {
	repo          Repo
	policy        AuthzPolicy
	handlers      token.HandlerSet
	salt          []byte
	grantLifetime time.Duration
	nowFunc       func() time.Time

	// rotateMu serializes refresh rotations so concurrent exchanges of the
	// same refresh token produce at most one success.
	rotateMu sync.Mutex
}

// ManagerOption modifies a Manager at construction time.
type ManagerOption func(*Manager)

// WithNowFunc sets the time source (primarily for testing).
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// WithPolicy sets the authorization policy deciding grant scope and rules.
func WithPolicy(policy AuthzPolicy) ManagerOption {
	return func(m *Manager) {
		m.policy = policy
	}
}

// WithGrantLifetime bounds the lifetime of grants created by the manager.
// Expired grants reject every lookup and mint. Zero means grants do not
// expire.
func WithGrantLifetime(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.grantLifetime = d
	}
}

// NewManager creates a session manager. The salt makes derived session ids
// unguessable; handlers supplies the token-value generator per class.
func NewManager(repo Repo, handlers token.HandlerSet, salt string, options ...ManagerOption) (*Manager, error) {
	if repo == nil {
		return nil, errors.New("[NewManager] repo is required")
	}
	if len(handlers) == 0 {
		return nil, errors.New("[NewManager] token handlers are required")
	}
	m := &Manager{
		repo:     repo,
		handlers: handlers,
		salt:     []byte(salt),
		nowFunc:  time.Now,
		policy:   StaticPolicy{UsageRules: DefaultUsageRules(5*time.Minute, 10*time.Minute, 24*time.Hour)},
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// CreateSession derives the session id for (userID, clientID, subType),
// creates a new grant bound to it and indexes the grant. Scope and usage
// rules come from the authorization policy.
func (m *Manager) CreateSession(ae AuthnEvent, req oauth2.AuthorizationRequest, userID, clientID, subType string) (string, error) {
	if userID == "" || clientID == "" {
		return "", errors.New("[Manager.CreateSession] userID and clientID are required")
	}

	sessionID := m.sessionID(userID, clientID, subType)
	scope, rules := m.policy.GrantConfig(userID, clientID, req.Scope)

	grant := grants.NewGrant(userID, clientID, scope, rules,
		grants.WithNowFunc(m.nowFunc),
		grants.WithExpiresIn(m.grantLifetime),
		grants.WithRedirectURI(req.RedirectURI),
		grants.WithAuthn(ae.AuthMethod, ae.AuthnTime),
	)
	if err := m.repo.UpsertGrant(sessionID, grant); err != nil {
		return "", errors.Wrap(err, "[Manager.CreateSession] repo.UpsertGrant")
	}
	return sessionID, nil
}

// GetSessionInfo resolves a branch id to its session binding and grant.
func (m *Manager) GetSessionInfo(branchID string) (*SessionInfo, error) {
	grant, err := m.repo.GetGrant(branchID)
	if err != nil {
		return nil, err
	}
	return &SessionInfo{
		BranchID:    branchID,
		UserID:      grant.UserID,
		ClientID:    grant.ClientID,
		RedirectURI: grant.RedirectURI,
		Authn: AuthnEvent{
			UserID:     grant.UserID,
			AuthnTime:  grant.AuthTime,
			AuthMethod: grant.AuthMethod,
		},
		Grant: grant,
	}, nil
}

// GetSessionInfoByToken resolves a token value to its owning branch. The
// handler key names the token class the caller expects the value to be;
// a value of a different class is reported as not found. Required because
// refresh/token requests arrive bearing only a token value.
func (m *Manager) GetSessionInfoByToken(value string, handlerKey grants.TokenClass) (*SessionInfo, error) {
	branchID, err := m.repo.BranchIDByTokenValue(value)
	if err != nil {
		return nil, err
	}
	info, err := m.GetSessionInfo(branchID)
	if err != nil {
		return nil, err
	}
	tok, err := info.Grant.GetToken(value)
	if err != nil {
		return nil, err
	}
	if tok.Class != handlerKey {
		return nil, grants.TokenNotFoundErr
	}
	return info, nil
}

// FindToken returns the token with the given value within a branch.
func (m *Manager) FindToken(branchID, value string) (*grants.Token, error) {
	grant, err := m.repo.GetGrant(branchID)
	if err != nil {
		return nil, err
	}
	return grant.GetToken(value)
}

// TokenStatus reports whether the named token within a branch is usable.
func (m *Manager) TokenStatus(branchID, value string) error {
	grant, err := m.repo.GetGrant(branchID)
	if err != nil {
		return err
	}
	return grant.TokenStatus(value, m.nowFunc())
}

// RevokeToken sets revoked on exactly the named token; it does not cascade
// to children minted from it.
func (m *Manager) RevokeToken(branchID, value string) error {
	grant, err := m.repo.GetGrant(branchID)
	if err != nil {
		return err
	}
	return grant.RevokeToken(value)
}

// MintToken mints one token from the branch's grant and indexes its value.
func (m *Manager) MintToken(branchID string, req grants.MintRequest) (*grants.Token, error) {
	minted, err := m.MintTokens(branchID, []grants.MintRequest{req})
	if err != nil {
		return nil, err
	}
	return minted[0], nil
}

// MintTokens mints a batch of tokens all-or-nothing and indexes the values.
func (m *Manager) MintTokens(branchID string, reqs []grants.MintRequest) ([]*grants.Token, error) {
	grant, err := m.repo.GetGrant(branchID)
	if err != nil {
		return nil, err
	}
	for i := range reqs {
		if reqs[i].SessionID == "" {
			reqs[i].SessionID = branchID
		}
	}
	minted, err := grant.MintTokens(reqs)
	if err != nil {
		return nil, err
	}
	for _, tok := range minted {
		if err := m.repo.IndexTokenValue(tok.Value, branchID); err != nil {
			return nil, errors.Wrap(err, "[Manager.MintTokens] repo.IndexTokenValue")
		}
	}
	return minted, nil
}

// RotateTokens mints the replacement tokens for a consumed refresh token
// and, when revokeConsumed is set, revokes the consumed token once every
// replacement minted successfully — never before, so a failed mint leaves
// the original usable. Rotations are serialized: of two concurrent
// exchanges of one refresh token, the loser observes the revoked state.
func (m *Manager) RotateTokens(branchID string, consumed *grants.Token, reqs []grants.MintRequest, revokeConsumed bool) ([]*grants.Token, error) {
	m.rotateMu.Lock()
	defer m.rotateMu.Unlock()

	grant, err := m.repo.GetGrant(branchID)
	if err != nil {
		return nil, err
	}
	if err := grant.TokenStatus(consumed.Value, m.nowFunc()); err != nil {
		return nil, err
	}

	minted, err := m.MintTokens(branchID, reqs)
	if err != nil {
		return nil, err
	}

	if revokeConsumed {
		if err := grant.RevokeToken(consumed.Value); err != nil {
			return nil, errors.Wrap(err, "[Manager.RotateTokens] grant.RevokeToken")
		}
	}
	return minted, nil
}

// TokenHandler returns the configured value generator for a token class.
func (m *Manager) TokenHandler(class grants.TokenClass) grants.TokenHandler {
	return m.handlers[class]
}

// sessionID derives the deterministic session id: a salted hash of the
// user, client and subject-type binding.
func (m *Manager) sessionID(userID, clientID, subType string) string {
	mac := hmac.New(sha256.New, m.salt)
	mac.Write([]byte(userID))
	mac.Write([]byte{';', ';'})
	mac.Write([]byte(clientID))
	mac.Write([]byte{';', ';'})
	mac.Write([]byte(subType))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
