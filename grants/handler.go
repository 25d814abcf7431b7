package grants

// Payload is the claim material handed to a token-value generator.
type Payload struct {
	SessionID string
	Subject   string
	ClientID  string
	Audience  []string
	Scope     []string
	Class     TokenClass
}

// TokenHandler generates the wire value of a token, either opaque or
// JWT-encoded. Implementations own the cryptography; a signing failure is
// propagated to the minting caller unchanged.
type TokenHandler interface {
	Mint(p Payload) (string, error)
}
