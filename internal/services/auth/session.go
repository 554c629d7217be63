// Package auth holds the bearer token the agent presents to the remote notes
// API. Tokens are issued elsewhere; the agent only reads their expiry.
package auth

import (
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the current bearer token. Opaque tokens are accepted as-is;
// JWTs are inspected for an exp claim without verifying the signature.
type Session struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
	now       func() time.Time
	log       *slog.Logger
}

// NewSession creates a session, optionally seeded with token. An invalid or
// expired seed token is logged and ignored.
func NewSession(token string, now func() time.Time, log *slog.Logger) *Session {
	if now == nil {
		now = time.Now
	}
	s := &Session{now: now, log: log}
	if token != "" {
		if err := s.Set(token); err != nil {
			log.Warn("ignoring configured API token", "error", err)
		}
	}
	return s
}

// Set replaces the token.
func (s *Session) Set(token string) error {
	if token == "" {
		return ErrTokenEmpty
	}
	exp := expiry(token)
	if !exp.IsZero() && !s.now().Before(exp) {
		return ErrSessionExpired
	}

	s.mu.Lock()
	s.token = token
	s.expiresAt = exp
	s.mu.Unlock()

	if exp.IsZero() {
		s.log.Info("session token set")
	} else {
		s.log.Info("session token set", "expires_at", exp)
	}
	return nil
}

// Token returns the bearer token, or "" when there is none or it expired.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.expiredLocked() {
		return ""
	}
	return s.token
}

// Active reports whether requests can be made on behalf of the session.
// Having no token at all is allowed for remotes without authentication.
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.expiredLocked()
}

// ExpiresAt returns the token expiry when the token carries one.
func (s *Session) ExpiresAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt, !s.expiresAt.IsZero()
}

// Clear forgets the token.
func (s *Session) Clear() {
	s.mu.Lock()
	s.token = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()
}

func (s *Session) expiredLocked() bool {
	return !s.expiresAt.IsZero() && !s.now().Before(s.expiresAt)
}

// expiry returns the exp claim of a JWT, or zero for opaque tokens and JWTs
// without exp.
func expiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
