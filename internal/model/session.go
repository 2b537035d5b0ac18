package model

import "time"

// Session is a server-side login record. The browser holds only a signed
// token naming the session ID; the identity lives here.
type Session struct {
	ID        string    `json:"id"`
	User      Identity  `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is past its expiry at time now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
