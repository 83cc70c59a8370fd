package model

import "time"

// Session is the backend's record that an identity is authenticated. It is
// kept server side in the session store and passed explicitly to anything
// that talks to the backend on the user's behalf.
type Session struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the access token is past its expiry at now. A
// session without a known expiry never expires.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Token returns the bearer token for backend calls, empty for a nil session.
func (s *Session) Token() string {
	if s == nil {
		return ""
	}
	return s.AccessToken
}
