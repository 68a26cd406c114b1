package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/caloriescount/auth-service/internal/auth"
	"github.com/caloriescount/auth-service/internal/domain"
	"github.com/caloriescount/auth-service/pkg/rabbitmq"
)

// Client-facing messages, kept stable because the web client matches on them.
const (
	msgRegistered      = "Registration successful!"
	msgEnterCode       = "Please enter the verification code"
	msgLoginSuccess    = "Login successful!"
	msgPasswordUpdated = "Password updated successfully"
	msgEmailFound      = "Email found"

	errDuplicateUser      = "Username or email already exists"
	errInvalidCredentials = "Invalid username or password"
	errNoActiveCode       = "No active verification code found. Please login again."
	errCodeExpired        = "Verification code expired. Please login again."
	errCodeMismatch       = "Invalid verification code. Please try again."
	errWrongOldPassword   = "Current password is incorrect"
	errUserNotFound       = "User not found"
	errUsernameNotFound   = "Username not found"
	errEmailMissing       = "Email not found for this user"
)

// AuthHandler translates HTTP requests into auth service calls.
type AuthHandler struct {
	svc       *auth.Service
	publisher rabbitmq.Publisher
}

// NewAuthHandler creates the handler. The publisher announces registrations to
// downstream services and may be a no-op when MQ is not configured.
func NewAuthHandler(svc *auth.Service, publisher rabbitmq.Publisher) *AuthHandler {
	return &AuthHandler{svc: svc, publisher: publisher}
}

// Register handles POST /register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username, email and password are required")
		return
	}

	userID, err := h.svc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateUser) {
			writeError(w, http.StatusBadRequest, errDuplicateUser)
			return
		}
		log.Printf("register failed for %q: %v", req.Username, err)
		writeError(w, http.StatusInternalServerError, "Server error during registration")
		return
	}

	// Best-effort announcement; registration already succeeded.
	event := domain.UserRegisteredEvent{UserID: userID, Username: req.Username, Email: req.Email}
	if err := h.publisher.Publish(r.Context(), auth.AuthEventsExchange, "user.registered", event); err != nil {
		log.Printf("Failed to publish user.registered event for user %s: %v", userID, err)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": msgRegistered,
		"userId":  userID,
	})
}

// Login handles POST /login. The otp field in the body selects the step: with
// a code present the outstanding challenge is verified, otherwise credentials
// are checked and a fresh challenge is issued.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.OTP != "" {
		h.completeLogin(w, r, req)
		return
	}
	h.beginLogin(w, r, req)
}

func (h *AuthHandler) beginLogin(w http.ResponseWriter, r *http.Request, req domain.LoginRequest) {
	err := h.svc.BeginLogin(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, errInvalidCredentials)
			return
		}
		log.Printf("login step 1 failed for %q: %v", req.Username, err)
		writeError(w, http.StatusInternalServerError, "Server error during login")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":    msgEnterCode,
		"requireOTP": true,
		"username":   req.Username,
	})
}

func (h *AuthHandler) completeLogin(w http.ResponseWriter, r *http.Request, req domain.LoginRequest) {
	user, err := h.svc.CompleteLogin(r.Context(), req.Username, req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNoActiveChallenge):
			writeError(w, http.StatusUnauthorized, errNoActiveCode)
		case errors.Is(err, auth.ErrChallengeExpired):
			writeError(w, http.StatusUnauthorized, errCodeExpired)
		case errors.Is(err, auth.ErrCodeMismatch):
			writeError(w, http.StatusUnauthorized, errCodeMismatch)
		default:
			log.Printf("login step 2 failed for %q: %v", req.Username, err)
			writeError(w, http.StatusInternalServerError, "Server error during login")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": msgLoginSuccess,
		"user":    user,
		"role":    user.Role,
	})
}

// ChangePassword handles PUT /users/{userID}/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req domain.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.svc.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserNotFound):
			writeError(w, http.StatusNotFound, errUserNotFound)
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, errWrongOldPassword)
		default:
			log.Printf("password update failed for user %s: %v", userID, err)
			writeError(w, http.StatusInternalServerError, "Failed to update password")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": msgPasswordUpdated})
}

// EmailByUsername handles POST /users/get-email-by-username, used by the login
// modal to show where the verification code would be sent.
func (h *AuthHandler) EmailByUsername(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		writeError(w, http.StatusBadRequest, "Username is required")
		return
	}

	email, err := h.svc.EmailByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, errUsernameNotFound)
			return
		}
		log.Printf("email lookup failed for %q: %v", req.Username, err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if email == "" {
		writeError(w, http.StatusBadRequest, errEmailMissing)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"email":   email,
		"message": msgEmailFound,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to encode response body: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
