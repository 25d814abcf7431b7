package users

import "errors"

var UserNotFoundErr = errors.New("user not found")

// Repo is the external resource-owner credential store consumed by the
// password grant.
type Repo interface {
	GetByUsername(username string) (*User, error)
}
