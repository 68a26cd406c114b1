package domain

import "time"

// Role is the authorization role attached to a user account.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User represents the core user model in our system. PasswordHash never leaves
// the service; it is excluded from every serialized payload.
type User struct {
	ID           string    `json:"userID"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"-"`
}

// Profile returns a copy of the user with the password hash stripped, suitable
// for embedding in a challenge or a response body.
func (u User) Profile() User {
	u.PasswordHash = ""
	return u
}

// RegisterRequest represents the data received from the client during signup.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest covers both steps of the login flow. The presence of OTP is
// what selects the verification step; there is no separate path.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	OTP      string `json:"otp"`
}

// ChangePasswordRequest represents the body of a password rotation call.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}
