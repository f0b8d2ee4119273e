package auth

import (
	"context"
	"time"

	"clinical-quiz-service/internal/domain"
)

// Account is a user together with its password hash. The hash is empty for
// accounts created through OAuth.
type Account struct {
	domain.User
	PasswordHash []byte
}

// ResetToken is a pending password reset; only the token hash is stored.
type ResetToken struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
}

// UserStore persists accounts and reset tokens.
type UserStore interface {
	// CreateUser fails with domain.ErrEmailTaken for a registered email.
	CreateUser(ctx context.Context, account Account) error
	// UserByEmail and UserByID fail with domain.ErrUserNotFound.
	UserByEmail(ctx context.Context, email string) (Account, error)
	UserByID(ctx context.Context, id string) (Account, error)
	UpdatePassword(ctx context.Context, userID string, hash []byte) error
	SaveResetToken(ctx context.Context, token ResetToken) error
	// ConsumeResetToken deletes the token and returns its user when it has not expired at now.
	ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (string, error)
}

// RevocationStore remembers signed-out token ids until they expire.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Mailer delivers password reset tokens.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}
