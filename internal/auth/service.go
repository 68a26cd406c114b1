package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caloriescount/auth-service/internal/domain"
)

// UserRepository is the slice of the user store the auth flow depends on.
// Implementations must return ErrUserNotFound for missing records and
// ErrDuplicateUser for uniqueness conflicts; anything else is treated as an
// infrastructure failure.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) (string, error)
	FindByUsername(ctx context.Context, username string) (domain.User, error)
	FindByID(ctx context.Context, id string) (domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// Service orchestrates the two-step login flow: credential verification
// issues a challenge, code verification consumes it and releases the profile.
// It also owns registration and password rotation.
type Service struct {
	repo       UserRepository
	hasher     *Hasher
	challenges *ChallengeStore
	notifier   ChallengeNotifier
	otpTTL     time.Duration

	// Seams for tests; production uses the defaults set by NewService.
	generateCode func() (string, error)
	now          func() time.Time
}

// NewService wires the auth service. The challenge store must be the single
// process-wide instance; otpTTL is the challenge validity window.
func NewService(repo UserRepository, hasher *Hasher, challenges *ChallengeStore, notifier ChallengeNotifier, otpTTL time.Duration) *Service {
	return &Service{
		repo:         repo,
		hasher:       hasher,
		challenges:   challenges,
		notifier:     notifier,
		otpTTL:       otpTTL,
		generateCode: GenerateOTP,
		now:          time.Now,
	}
}

// Register hashes the password and creates the user with role USER.
// Uniqueness conflicts surface as ErrDuplicateUser.
func (s *Service) Register(ctx context.Context, username, email, password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	return s.repo.CreateUser(ctx, user)
}

// BeginLogin verifies the password and, on success, issues a verification
// challenge for the username, replacing any outstanding one. The code itself
// is handed only to the notifier; the caller just learns that a code is
// pending. An unknown username and a wrong password both come back as
// ErrInvalidCredentials.
func (s *Service) BeginLogin(ctx context.Context, username, password string) error {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return err
	}

	code, err := s.generateCode()
	if err != nil {
		return err
	}

	issuedAt := s.now()
	challenge := domain.Challenge{
		Username:  username,
		Code:      code,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(s.otpTTL),
		Profile:   user.Profile(),
	}
	s.challenges.Put(challenge)

	if err := s.notifier.Notify(ctx, username, code, challenge.ExpiresAt); err != nil {
		return fmt.Errorf("delivering verification code: %w", err)
	}
	return nil
}

// CompleteLogin verifies the submitted code against the outstanding challenge
// and returns the authenticated profile. The challenge is consumed on success
// and on an expired attempt; a plain mismatch keeps it alive for a retry.
func (s *Service) CompleteLogin(ctx context.Context, username, code string) (domain.User, error) {
	challenge, ok := s.challenges.Get(username)
	if !ok {
		return domain.User{}, ErrNoActiveChallenge
	}

	if challenge.ExpiredAt(s.now()) {
		s.challenges.Delete(username)
		return domain.User{}, ErrChallengeExpired
	}

	if code != challenge.Code {
		return domain.User{}, ErrCodeMismatch
	}

	s.challenges.Delete(username)
	return challenge.Profile, nil
}

// ChangePassword rotates a user's password after verifying the current one.
// The old-password check runs regardless of what the new password looks like,
// and a mismatch is reported as ErrInvalidCredentials. Challenge state is
// untouched.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.hasher.Compare(user.PasswordHash, oldPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hashing new password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, userID, hash)
}

// EmailByUsername returns the email on file for a username. A missing user
// surfaces as ErrUserNotFound; a user without an email returns "".
func (s *Service) EmailByUsername(ctx context.Context, username string) (string, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	return user.Email, nil
}
