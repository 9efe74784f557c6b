// internal/security/security.go
package security

import (
	"crypto/subtle"

	"vendingbackend/internal/logger"
)

// Gate is the shared-secret check in front of the admin operations
// (add/edit/remove/refill items). There is no session state to manage:
// each admin action re-presents the credentials.
type Gate struct {
	username string
	password string
}

func NewGate(username, password string) *Gate {
	return &Gate{username: username, password: password}
}

// Authenticate compares the presented credentials in constant time.
func (g *Gate) Authenticate(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(g.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(g.password)) == 1
	if !userOK || !passOK {
		logger.LogWarn("Failed admin login attempt for user %q", username)
		return false
	}
	return true
}
