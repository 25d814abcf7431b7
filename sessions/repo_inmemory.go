package sessions

import (
	"sync"

	"github.com/jrsteele09/go-token-server/grants"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo keeps the session and token indexes in process memory.
type InMemoryRepo struct {
	lock     sync.RWMutex
	grants   map[string]*grants.Grant
	byToken  map[string]string   // token value -> branch id
	tokenIdx map[string][]string // branch id -> indexed token values
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		grants:   make(map[string]*grants.Grant),
		byToken:  make(map[string]string),
		tokenIdx: make(map[string][]string),
	}
}

func (r *InMemoryRepo) UpsertGrant(branchID string, g *grants.Grant) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.grants[branchID] = g
	return nil
}

func (r *InMemoryRepo) GetGrant(branchID string) (*grants.Grant, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	g, ok := r.grants[branchID]
	if !ok {
		return nil, SessionNotFoundErr
	}
	return g, nil
}

func (r *InMemoryRepo) DeleteGrant(branchID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.grants[branchID]; !ok {
		return SessionNotFoundErr
	}
	delete(r.grants, branchID)
	for _, value := range r.tokenIdx[branchID] {
		delete(r.byToken, value)
	}
	delete(r.tokenIdx, branchID)
	return nil
}

func (r *InMemoryRepo) IndexTokenValue(value, branchID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.byToken[value] = branchID
	r.tokenIdx[branchID] = append(r.tokenIdx[branchID], value)
	return nil
}

func (r *InMemoryRepo) BranchIDByTokenValue(value string) (string, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	branchID, ok := r.byToken[value]
	if !ok {
		return "", TokenNotIndexedErr
	}
	return branchID, nil
}
