package domain

import "time"

// UserRegisteredEvent is published to RabbitMQ after a successful signup.
type UserRegisteredEvent struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// OTPIssuedEvent carries a freshly issued verification code to an out-of-band
// delivery consumer (email/SMS worker). The code must never appear in an HTTP
// response; this event is the only way it leaves the process besides the log.
type OTPIssuedEvent struct {
	Username  string    `json:"username"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}
