package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"clinical-quiz-service/internal/auth"
	"clinical-quiz-service/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

const uniqueViolation = "23505"

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string    `bun:"id,pk"`
	Email        string    `bun:"email,notnull"`
	FullName     string    `bun:"full_name,notnull"`
	Provider     string    `bun:"provider,notnull"`
	PasswordHash []byte    `bun:"password_hash"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (r userRow) account() auth.Account {
	return auth.Account{
		User: domain.User{
			ID:        r.ID,
			Email:     r.Email,
			FullName:  r.FullName,
			Provider:  r.Provider,
			CreatedAt: r.CreatedAt,
		},
		PasswordHash: r.PasswordHash,
	}
}

type resetRow struct {
	bun.BaseModel `bun:"table:password_resets,alias:pr"`

	TokenHash string    `bun:"token_hash,pk"`
	UserID    string    `bun:"user_id,notnull"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
}

// UserStore is the Postgres auth.UserStore.
type UserStore struct {
	db *bun.DB
}

func NewUserStore(db *bun.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) CreateUser(ctx context.Context, account auth.Account) error {
	row := userRow{
		ID:           account.ID,
		Email:        account.Email,
		FullName:     account.FullName,
		Provider:     account.Provider,
		PasswordHash: account.PasswordHash,
		CreatedAt:    account.CreatedAt,
	}
	_, err := s.db.NewInsert().Model(&row).Exec(ctx)
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation {
		return domain.ErrEmailTaken
	}
	if err != nil {
		return &domain.StorageError{Op: "create user", Err: err}
	}
	return nil
}

func (s *UserStore) UserByEmail(ctx context.Context, email string) (auth.Account, error) {
	return s.userWhere(ctx, "u.email = ?", email)
}

func (s *UserStore) UserByID(ctx context.Context, id string) (auth.Account, error) {
	return s.userWhere(ctx, "u.id = ?", id)
}

func (s *UserStore) userWhere(ctx context.Context, where string, arg string) (auth.Account, error) {
	var row userRow
	err := s.db.NewSelect().Model(&row).Where(where, arg).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Account{}, domain.ErrUserNotFound
	}
	if err != nil {
		return auth.Account{}, &domain.StorageError{Op: "load user", Err: err}
	}
	return row.account(), nil
}

func (s *UserStore) UpdatePassword(ctx context.Context, userID string, hash []byte) error {
	res, err := s.db.NewUpdate().
		Model((*userRow)(nil)).
		Set("password_hash = ?", hash).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return &domain.StorageError{Op: "update password", Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *UserStore) SaveResetToken(ctx context.Context, token auth.ResetToken) error {
	row := resetRow{TokenHash: token.TokenHash, UserID: token.UserID, ExpiresAt: token.ExpiresAt}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return &domain.StorageError{Op: "save reset token", Err: err}
	}
	return nil
}

// ConsumeResetToken deletes the token whether or not it has expired.
func (s *UserStore) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	var row resetRow
	_, err := s.db.NewDelete().
		Model(&row).
		Where("token_hash = ?", tokenHash).
		Returning("user_id, expires_at").
		Exec(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrUserNotFound
	}
	if err != nil {
		return "", &domain.StorageError{Op: "consume reset token", Err: err}
	}
	if row.UserID == "" || !row.ExpiresAt.After(now) {
		return "", domain.ErrUserNotFound
	}
	return row.UserID, nil
}
