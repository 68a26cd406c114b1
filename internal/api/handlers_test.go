package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/caloriescount/auth-service/internal/auth"
	"github.com/caloriescount/auth-service/internal/domain"
)

type fakeUserRepo struct {
	byUsername map[string]domain.User
	byID       map[string]domain.User
	nextID     int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byUsername: map[string]domain.User{}, byID: map[string]domain.User{}}
}

func (r *fakeUserRepo) CreateUser(_ context.Context, user *domain.User) (string, error) {
	if _, exists := r.byUsername[user.Username]; exists {
		return "", auth.ErrDuplicateUser
	}
	for _, existing := range r.byUsername {
		if existing.Email == user.Email {
			return "", auth.ErrDuplicateUser
		}
	}
	r.nextID++
	stored := *user
	stored.ID = fmt.Sprintf("user-%d", r.nextID)
	r.byUsername[stored.Username] = stored
	r.byID[stored.ID] = stored
	return stored.ID, nil
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (domain.User, error) {
	user, ok := r.byUsername[username]
	if !ok {
		return domain.User{}, auth.ErrUserNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (domain.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return domain.User{}, auth.ErrUserNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	user, ok := r.byID[id]
	if !ok {
		return auth.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	r.byID[id] = user
	r.byUsername[user.Username] = user
	return nil
}

type recordingNotifier struct {
	code string
}

func (n *recordingNotifier) Notify(_ context.Context, _, code string, _ time.Time) error {
	n.code = code
	return nil
}

type recordedEvent struct {
	exchange   string
	routingKey string
	body       interface{}
}

type recordingPublisher struct {
	events []recordedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, exchange, routingKey string, body interface{}) error {
	p.events = append(p.events, recordedEvent{exchange: exchange, routingKey: routingKey, body: body})
	return nil
}

func (p *recordingPublisher) Close() {}

type testServer struct {
	router    *chi.Mux
	notifier  *recordingNotifier
	publisher *recordingPublisher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	notifier := &recordingNotifier{}
	publisher := &recordingPublisher{}
	svc := auth.NewService(newFakeUserRepo(), auth.NewHasher(bcrypt.MinCost), auth.NewChallengeStore(), notifier, 5*time.Minute)
	handler := NewAuthHandler(svc, publisher)

	r := chi.NewRouter()
	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Put("/users/{userID}/password", handler.ChangePassword)
	r.Post("/users/get-email-by-username", handler.EmailByUsername)

	return &testServer{router: r, notifier: notifier, publisher: publisher}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshalling request body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return rec, decoded
}

func (s *testServer) register(t *testing.T, username, email, password string) string {
	t.Helper()
	rec, body := s.do(t, http.MethodPost, "/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("register returned %d: %v", rec.Code, body)
	}
	userID, _ := body["userId"].(string)
	if userID == "" {
		t.Fatalf("register response missing userId: %v", body)
	}
	return userID
}

func TestRegister(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/register", map[string]string{
		"username": "alice", "email": "a@x.com", "password": "Secret1!",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body["message"] != "Registration successful!" {
		t.Fatalf("unexpected message %v", body["message"])
	}

	if len(s.publisher.events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(s.publisher.events))
	}
	if s.publisher.events[0].routingKey != "user.registered" {
		t.Fatalf("unexpected routing key %q", s.publisher.events[0].routingKey)
	}

	rec, body = s.do(t, http.MethodPost, "/register", map[string]string{
		"username": "alice", "email": "other@x.com", "password": "pw",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate, got %d", rec.Code)
	}
	if body["error"] != "Username or email already exists" {
		t.Fatalf("unexpected error %v", body["error"])
	}
}

func TestRegister_MissingFields(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodPost, "/register", map[string]string{"username": "alice"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for incomplete body, got %d", rec.Code)
	}
}

func TestLogin_TwoStepFlow(t *testing.T) {
	s := newTestServer(t)
	userID := s.register(t, "alice", "a@x.com", "Secret1!")

	// Step 1: credentials only.
	rec, body := s.do(t, http.MethodPost, "/login", map[string]string{
		"username": "alice", "password": "Secret1!",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from step 1, got %d: %v", rec.Code, body)
	}
	if body["requireOTP"] != true {
		t.Fatalf("expected requireOTP=true, got %v", body["requireOTP"])
	}
	if body["username"] != "alice" {
		t.Fatalf("expected username echo, got %v", body["username"])
	}
	if _, leaked := body["otp"]; leaked {
		t.Fatal("verification code must not appear in the response")
	}

	code := s.notifier.code
	if len(code) != 6 {
		t.Fatalf("expected a 6-digit code from the notifier, got %q", code)
	}

	// Step 2: submit the out-of-band code.
	rec, body = s.do(t, http.MethodPost, "/login", map[string]string{
		"username": "alice", "otp": code,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from step 2, got %d: %v", rec.Code, body)
	}
	if body["message"] != "Login successful!" {
		t.Fatalf("unexpected message %v", body["message"])
	}
	if body["role"] != "USER" {
		t.Fatalf("expected top-level role USER, got %v", body["role"])
	}
	user, ok := body["user"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected user object, got %v", body["user"])
	}
	if user["userID"] != userID || user["username"] != "alice" || user["email"] != "a@x.com" || user["role"] != "USER" {
		t.Fatalf("unexpected user payload: %v", user)
	}
	if _, leaked := user["password"]; leaked {
		t.Fatal("password hash must not be serialized")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "a@x.com", "Secret1!")

	rec, body := s.do(t, http.MethodPost, "/login", map[string]string{
		"username": "alice", "password": "WrongPass",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if body["error"] != "Invalid username or password" {
		t.Fatalf("unexpected error %v", body["error"])
	}

	// Failed credentials must not have created a challenge.
	rec, body = s.do(t, http.MethodPost, "/login", map[string]string{
		"username": "alice", "otp": "123456",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if body["error"] != "No active verification code found. Please login again." {
		t.Fatalf("unexpected error %v", body["error"])
	}
}

func TestLogin_OTPErrors(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "a@x.com", "Secret1!")

	rec, body := s.do(t, http.MethodPost, "/login", map[string]string{
		"username": "alice", "password": "Secret1!",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("step 1 failed: %d %v", rec.Code, body)
	}
	code := s.notifier.code
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	// Wrong code: 401, challenge retained.
	rec, body = s.do(t, http.MethodPost, "/login", map[string]string{
		"username": "alice", "otp": wrong,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong code, got %d", rec.Code)
	}
	if body["error"] != "Invalid verification code. Please try again." {
		t.Fatalf("unexpected error %v", body["error"])
	}

	// Correct code still works after the mismatch.
	rec, _ = s.do(t, http.MethodPost, "/login", map[string]string{
		"username": "alice", "otp": code,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected retry with correct code to succeed, got %d", rec.Code)
	}

	// Replay after success: the challenge is gone.
	rec, body = s.do(t, http.MethodPost, "/login", map[string]string{
		"username": "alice", "otp": code,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on replay, got %d", rec.Code)
	}
	if body["error"] != "No active verification code found. Please login again." {
		t.Fatalf("unexpected error %v", body["error"])
	}
}

func TestChangePassword(t *testing.T) {
	s := newTestServer(t)
	userID := s.register(t, "alice", "a@x.com", "Secret1!")

	rec, body := s.do(t, http.MethodPut, "/users/"+userID+"/password", map[string]string{
		"oldPassword": "WrongPass", "newPassword": "Next2!",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong old password, got %d", rec.Code)
	}
	if body["error"] != "Current password is incorrect" {
		t.Fatalf("unexpected error %v", body["error"])
	}

	rec, body = s.do(t, http.MethodPut, "/users/no-such-id/password", map[string]string{
		"oldPassword": "Secret1!", "newPassword": "Next2!",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", rec.Code)
	}
	if body["error"] != "User not found" {
		t.Fatalf("unexpected error %v", body["error"])
	}

	rec, body = s.do(t, http.MethodPut, "/users/"+userID+"/password", map[string]string{
		"oldPassword": "Secret1!", "newPassword": "Next2!",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", rec.Code, body)
	}
	if body["message"] != "Password updated successfully" {
		t.Fatalf("unexpected message %v", body["message"])
	}

	// The new password now opens the login flow; the old one does not.
	rec, _ = s.do(t, http.MethodPost, "/login", map[string]string{
		"username": "alice", "password": "Secret1!",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected old password rejected, got %d", rec.Code)
	}
	rec, _ = s.do(t, http.MethodPost, "/login", map[string]string{
		"username": "alice", "password": "Next2!",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected new password accepted, got %d", rec.Code)
	}
}

func TestEmailByUsername(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "a@x.com", "Secret1!")

	rec, body := s.do(t, http.MethodPost, "/users/get-email-by-username", map[string]string{"username": "alice"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body["email"] != "a@x.com" || body["message"] != "Email found" {
		t.Fatalf("unexpected body %v", body)
	}

	rec, body = s.do(t, http.MethodPost, "/users/get-email-by-username", map[string]string{"username": "nobody"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if body["error"] != "Username not found" {
		t.Fatalf("unexpected error %v", body["error"])
	}

	rec, _ = s.do(t, http.MethodPost, "/users/get-email-by-username", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without username, got %d", rec.Code)
	}
}
