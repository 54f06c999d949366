// Package auth verifies session cookies for the dashboard. Sessions are
// stateless HS256 JWTs carrying the GitHub login; access is restricted to
// an allowlist of logins.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized indicates a missing, invalid, expired, or non-allowlisted
// session.
var ErrUnauthorized = errors.New("auth: unauthorized")

// Principal is the authenticated caller.
type Principal struct {
	Login     string `json:"login"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Claims are the JWT claims for a dashboard session.
type Claims struct {
	Login  string `json:"login"`
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar_url,omitempty"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies session tokens. Thread-safe; no shared state
// beyond the signing secret.
type Sessions struct {
	secret  []byte
	allowed map[string]struct{}
	ttl     time.Duration
}

// NewSessions creates a session service for the given signing secret and
// allowlisted logins. Logins are matched case-insensitively.
func NewSessions(secret string, allowedLogins []string, ttl time.Duration) *Sessions {
	allowed := make(map[string]struct{}, len(allowedLogins))
	for _, l := range allowedLogins {
		l = strings.ToLower(strings.TrimSpace(l))
		if l != "" {
			allowed[l] = struct{}{}
		}
	}
	if ttl == 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Sessions{secret: []byte(secret), allowed: allowed, ttl: ttl}
}

// TTL returns the session lifetime, for cookie Max-Age.
func (s *Sessions) TTL() time.Duration { return s.ttl }

// Allowed reports whether a login is on the allowlist.
func (s *Sessions) Allowed(login string) bool {
	_, ok := s.allowed[strings.ToLower(login)]
	return ok
}

// Token issues a signed session token for the principal.
func (s *Sessions) Token(p Principal) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Login:  p.Login,
		Name:   p.Name,
		Avatar: p.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Login,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify validates a session token and returns the principal, or
// ErrUnauthorized on any failure (bad signature, expired, login not on the
// allowlist).
func (s *Sessions) Verify(token string) (*Principal, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrUnauthorized
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, ErrUnauthorized
	}
	if !s.Allowed(claims.Login) {
		return nil, ErrUnauthorized
	}
	return &Principal{Login: claims.Login, Name: claims.Name, AvatarURL: claims.Avatar}, nil
}
