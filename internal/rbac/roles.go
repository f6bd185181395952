package rbac

import "headset-bridge/internal/auth"

// implied lists the scopes each scope also grants.
var implied = map[string][]string{
	auth.ScopeControl: {auth.ScopeRead},
}

// Grants reports whether a token carrying scopes may use an endpoint needing want.
func Grants(scopes []string, want string) bool {
	for _, s := range scopes {
		if s == want {
			return true
		}
		for _, extra := range implied[s] {
			if extra == want {
				return true
			}
		}
	}
	return false
}
