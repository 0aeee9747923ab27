package service

import (
	"auth_gateway/internal/storage"
	"context"
	"errors"
	"fmt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type TokenIssuer interface {
	Issue(email string) (string, error)
}

type Auth interface {
	Register(ctx context.Context, email, password string) error
	Login(ctx context.Context, email, password string) (string, error)
}

type authService struct {
	storage storage.UserStorage
	tokens  TokenIssuer
}

func NewAuthService(st storage.UserStorage, tokens TokenIssuer) *authService {
	return &authService{
		storage: st,
		tokens:  tokens,
	}
}

// Register stores the credentials verbatim. An existing email yields storage.ErrUserExists.
func (s *authService) Register(ctx context.Context, email, password string) error {
	const op = "service.Register"

	_, err := s.storage.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return fmt.Errorf("%s: %w", op, storage.ErrUserExists)
	case !errors.Is(err, storage.ErrUserNotFound):
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.storage.CreateUser(ctx, email, password); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Login matches (email, password) exactly and issues a token for the email.
// Unknown email and wrong password both yield ErrInvalidCredentials.
func (s *authService) Login(ctx context.Context, email, password string) (string, error) {
	const op = "service.Login"

	user, err := s.storage.GetUserByCredentials(ctx, email, password)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.tokens.Issue(user.Email)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}
