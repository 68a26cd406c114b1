package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caloriescount/auth-service/internal/auth"
	"github.com/caloriescount/auth-service/internal/domain"
)

// PostgresUserRepository is the PostgreSQL implementation of
// auth.UserRepository.
type PostgresUserRepository struct {
	db *pgxpool.Pool
}

// NewPostgresUserRepository creates a new instance of PostgresUserRepository.
func NewPostgresUserRepository(db *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// CreateUser inserts a new user record into the database.
// It returns the new user's UUID or auth.ErrDuplicateUser on a uniqueness
// conflict over username or email.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, user *domain.User) (string, error) {
	query := `
        INSERT INTO users (username, email, password_hash, role)
        VALUES ($1, $2, $3, $4)
        RETURNING id
    `
	var userID string
	err := r.db.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		string(user.Role),
	).Scan(&userID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			log.Printf("Error creating user: unique constraint violation on %s", pgErr.ConstraintName)
			return "", auth.ErrDuplicateUser
		}
		return "", fmt.Errorf("inserting user: %w", err)
	}

	return userID, nil
}

// FindByUsername fetches a user by exact, case-sensitive username.
func (r *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	query := `
        SELECT id, username, email, password_hash, role, created_at
        FROM users
        WHERE username = $1
    `
	return r.scanUser(r.db.QueryRow(ctx, query, username))
}

// FindByID fetches a user by its UUID.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (domain.User, error) {
	query := `
        SELECT id, username, email, password_hash, role, created_at
        FROM users
        WHERE id = $1
    `
	return r.scanUser(r.db.QueryRow(ctx, query, id))
}

// UpdatePassword replaces the stored password hash for the user.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func (r *PostgresUserRepository) scanUser(row pgx.Row) (domain.User, error) {
	var user domain.User
	var role string
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, auth.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("querying user: %w", err)
	}
	user.Role = domain.Role(role)
	return user, nil
}
