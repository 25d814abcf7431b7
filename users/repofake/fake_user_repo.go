package repofake

import (
	"sync"

	"github.com/jrsteele09/go-token-server/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

// FakeUserRepo is an in-memory user store for tests and wiring.
type FakeUserRepo struct {
	lock  sync.RWMutex
	users map[string]*users.User // keyed by username
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users: make(map[string]*users.User),
	}
}

func (r *FakeUserRepo) Upsert(u *users.User) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.users[u.Username] = u
}

func (r *FakeUserRepo) GetByUsername(username string) (*users.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	u, ok := r.users[username]
	if !ok {
		return nil, users.UserNotFoundErr
	}
	return u, nil
}
