package oauth2

// Error codes a token endpoint may return, per RFC 6749 §5.2.
const (
	ErrorInvalidRequest = "invalid_request"
	ErrorInvalidClient  = "invalid_client"
	ErrorInvalidGrant   = "invalid_grant"
)

// TokenError is the error response of the token endpoint. It doubles as a Go
// error so protocol failures can travel through ordinary error returns and
// still render as the exact wire object.
type TokenError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *TokenError) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return e.Code + ": " + e.Description
}

// NewTokenError creates a token endpoint error response.
func NewTokenError(code, description string) *TokenError {
	return &TokenError{Code: code, Description: description}
}
