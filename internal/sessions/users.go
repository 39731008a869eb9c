package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/occuhealth/ehr-platform/internal/auth"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// User is a clinic staff account.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         auth.Role
	Active       bool
}

// UserDirectory looks up accounts for login.
type UserDirectory interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
}

// PostgresUsers reads staff accounts from the users table.
type PostgresUsers struct {
	db *sql.DB
}

func NewPostgresUsers(db *sql.DB) *PostgresUsers {
	return &PostgresUsers{db: db}
}

// GetByUsername returns (nil, nil) when the account does not exist.
func (r *PostgresUsers) GetByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, role, active
		FROM users WHERE username = $1`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sessions: get user: %w", err)
	}
	return &u, nil
}

// Authenticate checks the password against the stored bcrypt hash. Missing
// and inactive accounts fail the same way as a wrong password so login
// timing does not leak which usernames exist.
func Authenticate(ctx context.Context, users UserDirectory, username, password string) (*User, error) {
	u, err := users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.Active {
		// Burn a hash comparison anyway.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$invalidinvalidinvalidinvalidinvalidinvalidinvalidinv"), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// HashPassword produces a bcrypt hash for account provisioning.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("sessions: hash password: %w", err)
	}
	return string(hash), nil
}
