package session

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tbourn/pawconnect/internal/domain"
)

// Roles are the authorization flags derived from a session.
type Roles struct {
	IsAdmin bool `json:"isAdmin"`
	IsUser  bool `json:"isUser"`
}

// DeriveRoles computes the role flags of s. A role matches by name or by
// its seeded numeric id.
func DeriveRoles(s domain.Session) Roles {
	var r Roles
	for _, role := range s.Roles {
		name := strings.ToUpper(strings.TrimSpace(role.Name))
		if name == domain.RoleAdmin || role.ID == domain.RoleAdminID {
			r.IsAdmin = true
		}
		if name == domain.RoleUser || role.ID == domain.RoleUserID {
			r.IsUser = true
		}
	}
	return r
}

// IsAdmin reports whether s carries the admin role.
func IsAdmin(s domain.Session) bool { return DeriveRoles(s).IsAdmin }

// TokenUsable reports whether tok can authenticate a call at now: it must be
// non-empty and, when it parses as a JWT carrying exp, not yet expired. The
// signature is not checked; only the backend can do that.
func TokenUsable(tok string, now time.Time) bool {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return false
	}
	exp, ok := tokenExpiry(tok)
	if !ok {
		return true
	}
	return now.Before(exp)
}

func tokenExpiry(tok string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
