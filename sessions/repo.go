package sessions

import (
	"errors"

	"github.com/jrsteele09/go-token-server/grants"
)

var (
	SessionNotFoundErr = errors.New("session not found")
	TokenNotIndexedErr = errors.New("token value not indexed")
)

// Repo persists the session→grant index and the token-value→session reverse
// index. The in-memory implementation below is the default; persistent
// stores plug in behind the same interface and must provide read-your-writes
// consistency within one session.
type Repo interface {
	UpsertGrant(branchID string, g *grants.Grant) error
	GetGrant(branchID string) (*grants.Grant, error)
	DeleteGrant(branchID string) error

	IndexTokenValue(value, branchID string) error
	BranchIDByTokenValue(value string) (string, error)
}
