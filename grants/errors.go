package grants

import (
	"errors"
	"fmt"
)

var (
	GrantExpiredErr      = errors.New("grant expired")
	TokenNotFoundErr     = errors.New("token not found")
	TokenRevokedErr      = errors.New("token revoked")
	TokenExpiredErr      = errors.New("token expired")
	TokenExhaustedErr    = errors.New("token usage exhausted")
	DuplicateValueErr    = errors.New("token value already minted")
	ScopeExceedsGrantErr = errors.New("scope exceeds original grant scope")
	UnknownTokenClassErr = errors.New("unknown token class")
)

// MintingNotSupportedError reports that the parent token's usage rules do not
// allow minting the requested class.
type MintingNotSupportedError struct {
	Class TokenClass
}

func (e *MintingNotSupportedError) Error() string {
	return fmt.Sprintf("Minting of %s not supported", e.Class)
}
