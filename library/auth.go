package library

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashSecret returns a bcrypt hash suitable for User.Secret.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// secretMatches compares a candidate against a stored secret, which may be a
// bcrypt hash or, for seeded and hand-edited records, plaintext.
func secretMatches(stored, candidate string) bool {
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(candidate)) == nil
	}
	return stored == candidate
}

// Authenticate returns the first user whose name and secret both match.
func (l *Library) Authenticate(name, secret string) (*User, bool) {
	for _, u := range l.store.Users() {
		if u.Name == name && secretMatches(u.Secret, secret) {
			return u, true
		}
	}
	return nil, false
}
