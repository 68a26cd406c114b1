package auth

import "errors"

// Business-rule failures of the authentication flow. Handlers map these to
// HTTP statuses and client-facing messages; anything else that comes out of
// the service is an infrastructure failure and surfaces as an opaque 500.
var (
	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password so the response never reveals which part was wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrNoActiveChallenge means verification was attempted with no
	// outstanding code for the username: never issued, already consumed,
	// or swept after expiry.
	ErrNoActiveChallenge = errors.New("no active verification code")

	// ErrChallengeExpired means the code was submitted after its validity
	// window. The challenge is deleted as a side effect of observing this.
	ErrChallengeExpired = errors.New("verification code expired")

	// ErrCodeMismatch means a live challenge exists but the submitted code is
	// wrong. The challenge is retained so the user can retry.
	ErrCodeMismatch = errors.New("invalid verification code")

	// ErrDuplicateUser is a registration conflict on username or email.
	ErrDuplicateUser = errors.New("username or email already exists")

	// ErrUserNotFound is returned when an operation addresses a user id that
	// does not exist.
	ErrUserNotFound = errors.New("user not found")
)
