package sqliterepo

import (
	"crypto/x509"
	"database/sql"
	"encoding/pem"
	"strings"

	"github.com/jrsteele09/go-token-server/clients"
	"github.com/jrsteele09/go-token-server/oauth2"
	"github.com/pkg/errors"

	_ "modernc.org/sqlite"
)

var _ clients.Repo = (*Store)(nil)

// Store is a sqlite backed client directory.
type Store struct {
	db *sql.DB
}

// New opens the sqlite database at dsn.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "[sqliterepo.New] sql.Open")
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "[sqliterepo.New] enable foreign keys")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Get returns the client record with the given id.
func (s *Store) Get(clientID string) (*clients.Client, error) {
	row := s.db.QueryRow(`
		SELECT client_id, client_secret, redirect_uris, allowed_scopes,
		       grant_types_supported, endpoint_auth_method,
		       revoke_refresh_on_issue, public_key_pem
		FROM clients WHERE client_id = ?`, clientID)

	var (
		c          clients.Client
		uris       string
		scopes     string
		grantTypes sql.NullString
		revoke     sql.NullBool
		keyPEM     string
	)
	err := row.Scan(&c.ID, &c.Secret, &uris, &scopes, &grantTypes,
		&c.EndpointAuthMethod, &revoke, &keyPEM)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, clients.ClientNotFoundErr
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Store.Get] row.Scan")
	}

	c.RedirectURIs = splitList(uris)
	c.AllowedScopes = splitList(scopes)
	if grantTypes.Valid {
		c.GrantTypesSupported = []oauth2.GrantType{}
		for _, gt := range splitList(grantTypes.String) {
			c.GrantTypesSupported = append(c.GrantTypesSupported, oauth2.GrantType(gt))
		}
	}
	if revoke.Valid {
		v := revoke.Bool
		c.RevokeRefreshOnIssue = &v
	}
	if keyPEM != "" {
		key, err := parsePublicKeyPEM(keyPEM)
		if err != nil {
			return nil, errors.Wrap(err, "[Store.Get] parse public key")
		}
		c.PublicKey = key
	}
	return &c, nil
}

// Upsert writes a client record, used by registration tooling and tests.
func (s *Store) Upsert(c *clients.Client) error {
	var grantTypes sql.NullString
	if c.GrantTypesSupported != nil {
		parts := make([]string, 0, len(c.GrantTypesSupported))
		for _, gt := range c.GrantTypesSupported {
			parts = append(parts, string(gt))
		}
		grantTypes = sql.NullString{String: strings.Join(parts, " "), Valid: true}
	}
	var revoke sql.NullBool
	if c.RevokeRefreshOnIssue != nil {
		revoke = sql.NullBool{Bool: *c.RevokeRefreshOnIssue, Valid: true}
	}
	keyPEM, err := encodePublicKeyPEM(c.PublicKey)
	if err != nil {
		return errors.Wrap(err, "[Store.Upsert] encode public key")
	}

	_, err = s.db.Exec(`
		INSERT INTO clients (client_id, client_secret, redirect_uris, allowed_scopes,
		                     grant_types_supported, endpoint_auth_method,
		                     revoke_refresh_on_issue, public_key_pem)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(client_id) DO UPDATE SET
			client_secret           = excluded.client_secret,
			redirect_uris           = excluded.redirect_uris,
			allowed_scopes          = excluded.allowed_scopes,
			grant_types_supported   = excluded.grant_types_supported,
			endpoint_auth_method    = excluded.endpoint_auth_method,
			revoke_refresh_on_issue = excluded.revoke_refresh_on_issue,
			public_key_pem          = excluded.public_key_pem`,
		c.ID, c.Secret, strings.Join(c.RedirectURIs, " "),
		strings.Join(c.AllowedScopes, " "), grantTypes,
		c.EndpointAuthMethod, revoke, keyPEM)
	return errors.Wrap(err, "[Store.Upsert] db.Exec")
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Fields(s)
}

func parsePublicKeyPEM(keyPEM string) (any, error) {
	block, _ := pem.Decode([]byte(keyPEM))
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	return x509.ParsePKIXPublicKey(block.Bytes)
}

func encodePublicKeyPEM(key any) (string, error) {
	if key == nil {
		return "", nil
	}
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}
