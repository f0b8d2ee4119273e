package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"clinical-quiz-service/internal/domain"
	"go.uber.org/zap"
)

// ErrUnknownProvider is returned for OAuth providers that are not configured.
var ErrUnknownProvider = errors.New("unknown oauth provider")

// Session is what a successful sign-in hands to the client.
type Session struct {
	AccessToken string      `json:"accessToken"`
	ExpiresAt   time.Time   `json:"expiresAt"`
	User        domain.User `json:"user"`
}

// Service fronts the identity provider. Provider-specific failures are logged
// and collapsed to domain.ErrAuthFailed.
type Service struct {
	identity IdentityProvider
	tokens   *TokenIssuer
	revoked  RevocationStore
	oauth    map[string]*OAuthProvider
	log      *zap.Logger
}

func NewService(identity IdentityProvider, tokens *TokenIssuer, revoked RevocationStore, log *zap.Logger, providers ...*OAuthProvider) *Service {
	s := &Service{
		identity: identity,
		tokens:   tokens,
		revoked:  revoked,
		oauth:    make(map[string]*OAuthProvider, len(providers)),
		log:      log,
	}
	for _, p := range providers {
		s.oauth[p.Name()] = p
	}
	return s
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	user, err := s.identity.SignInWithPassword(ctx, email, password)
	if err != nil {
		return Session{}, s.fail("sign in", err)
	}
	return s.issue(user)
}

func (s *Service) SignUp(ctx context.Context, email, password, fullName string) (Session, error) {
	user, err := s.identity.SignUp(ctx, email, password, fullName)
	switch {
	case errors.Is(err, domain.ErrEmailTaken), errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrWeakPassword):
		return Session{}, err
	case err != nil:
		return Session{}, s.fail("sign up", err)
	}
	return s.issue(user)
}

// SignOut revokes the token until its natural expiry.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return s.fail("sign out", err)
	}
	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// CurrentUser resolves the user behind an access token.
func (s *Service) CurrentUser(ctx context.Context, token string) (domain.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return domain.User{}, s.fail("parse token", err)
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return domain.User{}, s.fail("check revocation", err)
	}
	if revoked {
		return domain.User{}, domain.ErrAuthFailed
	}
	user, err := s.identity.UserByID(ctx, claims.Subject)
	if err != nil {
		return domain.User{}, s.fail("load user", err)
	}
	return user, nil
}

func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if err := s.identity.RequestPasswordReset(ctx, email); err != nil {
		return s.fail("password reset request", err)
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	err := s.identity.ResetPassword(ctx, token, newPassword)
	switch {
	case errors.Is(err, ErrWeakPassword):
		return err
	case err != nil:
		return s.fail("password reset", err)
	}
	return nil
}

// OAuthURL returns the provider sign-in URL bound to state.
func (s *Service) OAuthURL(provider, state string) (string, error) {
	p, ok := s.oauth[provider]
	if !ok {
		return "", ErrUnknownProvider
	}
	return p.AuthCodeURL(state), nil
}

// OAuthSignIn completes the code flow and signs the user in.
func (s *Service) OAuthSignIn(ctx context.Context, provider, code string) (Session, error) {
	p, ok := s.oauth[provider]
	if !ok {
		return Session{}, ErrUnknownProvider
	}
	profile, err := p.Profile(ctx, code)
	if err != nil {
		return Session{}, s.fail("oauth exchange", err)
	}
	user, err := s.identity.LinkExternal(ctx, provider, profile)
	if err != nil {
		return Session{}, s.fail("oauth link", err)
	}
	return s.issue(user)
}

// Providers lists the configured OAuth providers.
func (s *Service) Providers() []string {
	out := make([]string, 0, len(s.oauth))
	for name := range s.oauth {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *Service) issue(user domain.User) (Session, error) {
	token, claims, err := s.tokens.Issue(user)
	if err != nil {
		return Session{}, s.fail("issue token", err)
	}
	return Session{AccessToken: token, ExpiresAt: claims.ExpiresAt.Time, User: user}, nil
}

func (s *Service) fail(op string, err error) error {
	s.log.Info("authentication failed", zap.String("op", op), zap.Error(err))
	return domain.ErrAuthFailed
}
