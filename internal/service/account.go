package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/pkordes/mileage-tracker/internal/auth"
	"github.com/pkordes/mileage-tracker/internal/domain"
	"github.com/pkordes/mileage-tracker/internal/repo"
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 8

// AccountService registers users and signs them in and out.
type AccountService struct {
	users    repo.UserRepo
	tokens   *auth.TokenIssuer
	sessions *auth.Sessions
	log      *slog.Logger
}

// NewAccountService constructs an AccountService.
func NewAccountService(users repo.UserRepo, tokens *auth.TokenIssuer, sessions *auth.Sessions, log *slog.Logger) *AccountService {
	if log == nil {
		log = slog.Default()
	}
	return &AccountService{users: users, tokens: tokens, sessions: sessions, log: log}
}

// Register validates the credentials and creates an account.
// Returns domain.ErrValidation for a malformed email or a short password and
// domain.ErrConflict when the email is already registered.
func (s *AccountService) Register(ctx context.Context, email, password string) (domain.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.AccountService.Register: %w", err)
	}
	if len(password) < MinPasswordLength {
		return domain.User{}, fmt.Errorf("service.AccountService.Register: %w: password must be at least %d characters", domain.ErrValidation, MinPasswordLength)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.AccountService.Register: %w", err)
	}

	u, err := s.users.Create(ctx, email, hash)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.AccountService.Register: %w", err)
	}
	s.log.InfoContext(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// SignIn checks the credentials, marks the user signed in and issues a
// bearer token. Unknown emails and wrong passwords both return
// domain.ErrInvalidCredentials.
func (s *AccountService) SignIn(ctx context.Context, email, password string) (string, time.Time, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("service.AccountService.SignIn: %w", domain.ErrInvalidCredentials)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return "", time.Time{}, fmt.Errorf("service.AccountService.SignIn: %w", domain.ErrInvalidCredentials)
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("service.AccountService.SignIn: %w", storageError(domain.ErrStorageRead, err))
	}

	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		return "", time.Time{}, fmt.Errorf("service.AccountService.SignIn: %w", err)
	}

	userID := u.ID.String()
	gen := s.sessions.SignIn(userID)
	token, expires, err := s.tokens.Issue(userID, gen)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("service.AccountService.SignIn: %w", err)
	}
	s.log.InfoContext(ctx, "user signed in", "user_id", userID)
	return token, expires, nil
}

// SignOut marks the user signed out. Tokens issued before this call stop
// being accepted.
func (s *AccountService) SignOut(ctx context.Context, userID string) {
	s.sessions.SignOut(userID)
	s.log.InfoContext(ctx, "user signed out", "user_id", userID)
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email address", domain.ErrValidation)
	}
	return email, nil
}
