package domain

import "time"

// Challenge binds a username to its currently outstanding verification code.
// At most one live challenge exists per username; issuing a new one replaces
// any prior entry. A challenge is consumed exactly once, on successful
// verification or lazily when an expired attempt is observed.
type Challenge struct {
	Username  string
	Code      string
	IssuedAt  time.Time
	ExpiresAt time.Time

	// Profile is the already-verified user record released to the client when
	// the code matches. The password hash is stripped before it is stored here.
	Profile User
}

// ExpiredAt reports whether the challenge is past its validity window at the
// given instant. A call at exactly ExpiresAt is still within the window.
func (c Challenge) ExpiredAt(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
