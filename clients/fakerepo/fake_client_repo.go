package fakerepo

import (
	"sync"

	"github.com/jrsteele09/go-token-server/clients"
)

var _ clients.Repo = (*FakeClientRepo)(nil)

// FakeClientRepo is an in-memory client directory for tests and wiring.
type FakeClientRepo struct {
	lock    sync.RWMutex
	clients map[string]*clients.Client
}

func NewFakeClientRepo() *FakeClientRepo {
	return &FakeClientRepo{
		clients: make(map[string]*clients.Client),
	}
}

func (r *FakeClientRepo) Upsert(c *clients.Client) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.clients[c.ID] = c
}

func (r *FakeClientRepo) Get(clientID string) (*clients.Client, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	c, ok := r.clients[clientID]
	if !ok {
		return nil, clients.ClientNotFoundErr
	}
	return c, nil
}
