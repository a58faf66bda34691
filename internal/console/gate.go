package console

import (
	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is the classroom's shared teacher password when none is
// configured.
const DefaultPassword = "geography"

// Gate checks the shared teacher password. A configured bcrypt hash wins
// over the plaintext value.
type Gate struct {
	plain string
	hash  []byte
}

func NewGate(plain, bcryptHash string) Gate {
	if plain == "" && bcryptHash == "" {
		plain = DefaultPassword
	}
	g := Gate{plain: plain}
	if bcryptHash != "" {
		g.hash = []byte(bcryptHash)
	}
	return g
}

func (g Gate) Check(password string) bool {
	if password == "" {
		return false
	}
	if len(g.hash) > 0 {
		return bcrypt.CompareHashAndPassword(g.hash, []byte(password)) == nil
	}
	return password == g.plain
}
