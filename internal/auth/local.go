package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"clinical-quiz-service/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

var (
	// ErrInvalidEmail is returned on sign-up with an unparsable address.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrWeakPassword is returned for passwords shorter than the minimum.
	ErrWeakPassword = fmt.Errorf("password must have at least %d characters", minPasswordLength)
)

// IdentityProvider is the account backend behind Service.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (domain.User, error)
	SignUp(ctx context.Context, email, password, fullName string) (domain.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	UserByID(ctx context.Context, id string) (domain.User, error)
	// LinkExternal returns the account for an OAuth profile, creating it on first sign-in.
	LinkExternal(ctx context.Context, provider string, profile Profile) (domain.User, error)
}

// LocalProvider keeps accounts in a UserStore with bcrypt password hashes.
type LocalProvider struct {
	users    UserStore
	mailer   Mailer
	resetTTL time.Duration
	cost     int
	now      func() time.Time
	log      *zap.Logger
}

// LocalOption customizes a LocalProvider.
type LocalOption func(*LocalProvider)

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) LocalOption {
	return func(p *LocalProvider) { p.cost = cost }
}

func NewLocalProvider(users UserStore, mailer Mailer, resetTTL time.Duration, log *zap.Logger, opts ...LocalOption) *LocalProvider {
	p := &LocalProvider{
		users:    users,
		mailer:   mailer,
		resetTTL: resetTTL,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *LocalProvider) SignInWithPassword(ctx context.Context, email, password string) (domain.User, error) {
	account, err := p.users.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return domain.User{}, err
	}
	if len(account.PasswordHash) == 0 {
		return domain.User{}, fmt.Errorf("account %s has no password", account.ID)
	}
	if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(password)); err != nil {
		return domain.User{}, err
	}
	return account.User, nil
}

func (p *LocalProvider) SignUp(ctx context.Context, email, password, fullName string) (domain.User, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return domain.User{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return domain.User{}, err
	}
	account := Account{
		User: domain.User{
			ID:        uuid.NewString(),
			Email:     email,
			FullName:  strings.TrimSpace(fullName),
			Provider:  "password",
			CreatedAt: p.now().UTC(),
		},
		PasswordHash: hash,
	}
	if err := p.users.CreateUser(ctx, account); err != nil {
		return domain.User{}, err
	}
	return account.User, nil
}

// RequestPasswordReset issues a reset token. Unknown emails succeed silently.
func (p *LocalProvider) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	account, err := p.users.UserByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		p.log.Debug("password reset for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return err
	}
	token := hex.EncodeToString(raw)
	if err := p.users.SaveResetToken(ctx, ResetToken{
		TokenHash: hashToken(token),
		UserID:    account.ID,
		ExpiresAt: p.now().Add(p.resetTTL),
	}); err != nil {
		return err
	}
	return p.mailer.SendPasswordReset(ctx, email, token)
}

func (p *LocalProvider) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}
	userID, err := p.users.ConsumeResetToken(ctx, hashToken(token), p.now())
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), p.cost)
	if err != nil {
		return err
	}
	return p.users.UpdatePassword(ctx, userID, hash)
}

func (p *LocalProvider) UserByID(ctx context.Context, id string) (domain.User, error) {
	account, err := p.users.UserByID(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	return account.User, nil
}

func (p *LocalProvider) LinkExternal(ctx context.Context, provider string, profile Profile) (domain.User, error) {
	email := normalizeEmail(profile.Email)
	if email == "" {
		return domain.User{}, fmt.Errorf("%s profile has no email", provider)
	}
	account, err := p.users.UserByEmail(ctx, email)
	if err == nil {
		return account.User, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, err
	}

	account = Account{User: domain.User{
		ID:        uuid.NewString(),
		Email:     email,
		FullName:  profile.Name,
		Provider:  provider,
		CreatedAt: p.now().UTC(),
	}}
	if err := p.users.CreateUser(ctx, account); err != nil {
		return domain.User{}, err
	}
	return account.User, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// LogMailer writes reset tokens to the log instead of sending mail.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendPasswordReset(_ context.Context, email, token string) error {
	m.log.Info("password reset requested", zap.String("email", email), zap.String("token", token))
	return nil
}
