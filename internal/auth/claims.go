package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const TokenTypeAccess TokenType = "access"

// Scopes granted to local API clients.
const (
	ScopeRead    = "headset:read"
	ScopeControl = "headset:control"
)

// Claims are the only supported JWT claims shape for the control API.
// Subject carries the client id (the softphone instance the token was issued to).
type Claims struct {
	jwt.RegisteredClaims

	Scopes    []string  `json:"scopes"`
	TokenType TokenType `json:"token_type"`
}

func (c Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
