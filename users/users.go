package users

import "golang.org/x/crypto/bcrypt"

// User is one resource-owner record. Credential verification is the only
// concern this server has with users; everything else lives in the external
// identity store.
type User struct {
	ID           string `json:"id,omitempty"`       // Unique identifier for the user
	Username     string `json:"username,omitempty"` // Unique username
	PasswordHash string `json:"-"`                  // Hashed password - never serialize
	Blocked      bool   `json:"blocked,omitempty"`  // Blocked users cannot obtain tokens
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a plaintext password with a bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
