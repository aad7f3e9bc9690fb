package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"cyberbuddy/internal/backend"
)

// Validation errors for credentials
var (
	ErrMissingEmail    = errors.New("email is required")
	ErrInvalidEmail    = errors.New("email address is not valid")
	ErrMissingPassword = errors.New("password is required")
	ErrMissingName     = errors.New("name is required")
	ErrMissingToken    = errors.New("reset token is required")
)

// Backend is the part of the backend client used for authentication
type Backend interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, name, email, password string) (string, error)
	Me(ctx context.Context) (*backend.User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, email, password string) error
	SetToken(token string)
}

// Service logs users in and out and keeps the backend client's token in
// sync with the token store
type Service struct {
	backend Backend
	tokens  *TokenStore
	logger  *zap.Logger
}

// NewService creates an auth service
func NewService(b Backend, tokens *TokenStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: b, tokens: tokens, logger: logger}
}

// Restore loads a saved token into the backend client. It reports whether
// a token was found.
func (s *Service) Restore() (bool, error) {
	token, err := s.tokens.Load()
	if errors.Is(err, ErrNoToken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.backend.SetToken(token)
	s.logger.Debug("restored saved token", zap.String("path", s.tokens.Path()))
	return true, nil
}

// Login authenticates with email and password and saves the token
func (s *Service) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return err
	}

	token, err := s.backend.Login(ctx, email, password)
	if err != nil {
		s.logger.Warn("login failed", zap.String("email", email), zap.Error(err))
		return err
	}
	return s.accept(token, email)
}

// Register creates an account and saves the returned token
func (s *Service) Register(ctx context.Context, name, email, password string) error {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return ErrMissingName
	}
	if err := validateCredentials(email, password); err != nil {
		return err
	}

	token, err := s.backend.Register(ctx, name, email, password)
	if err != nil {
		s.logger.Warn("registration failed", zap.String("email", email), zap.Error(err))
		return err
	}
	return s.accept(token, email)
}

// ForgotPassword requests a reset link for email
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrMissingEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}

	if err := s.backend.ForgotPassword(ctx, email); err != nil {
		s.logger.Warn("password reset request failed", zap.String("email", email), zap.Error(err))
		return err
	}
	s.logger.Info("password reset requested", zap.String("email", email))
	return nil
}

// ResetPassword sets a new password with the token from a reset link. The
// saved session is left untouched; the user logs in with the new password.
func (s *Service) ResetPassword(ctx context.Context, token, email, password string) error {
	token = strings.TrimSpace(token)
	email = strings.TrimSpace(email)
	if token == "" {
		return ErrMissingToken
	}
	if err := validateCredentials(email, password); err != nil {
		return err
	}

	if err := s.backend.ResetPassword(ctx, token, email, password); err != nil {
		s.logger.Warn("password reset failed", zap.String("email", email), zap.Error(err))
		return err
	}
	s.logger.Info("password reset", zap.String("email", email))
	return nil
}

// Me returns the logged-in user's profile
func (s *Service) Me(ctx context.Context) (*backend.User, error) {
	return s.backend.Me(ctx)
}

// Logout forgets the token both in memory and on disk
func (s *Service) Logout() error {
	s.backend.SetToken("")
	if err := s.tokens.Clear(); err != nil {
		return err
	}
	s.logger.Info("logged out")
	return nil
}

func (s *Service) accept(token, email string) error {
	s.backend.SetToken(token)
	if err := s.tokens.Save(token); err != nil {
		return fmt.Errorf("logged in but could not save session: %w", err)
	}
	s.logger.Info("logged in", zap.String("email", email))
	return nil
}

func validateCredentials(email, password string) error {
	if email == "" {
		return ErrMissingEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}
	if password == "" {
		return ErrMissingPassword
	}
	return nil
}
