package auth

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type Service struct {
	Store     *Store
	JWTSecret string
	TokenTTL  time.Duration
}

func NewService(store *Store, jwtSecret string) *Service {
	return &Service{Store: store, JWTSecret: jwtSecret, TokenTTL: 12 * time.Hour}
}

// Login verifies the credentials and issues a signed token. A missing
// user and a wrong password return the same error so the endpoint does
// not leak which emails exist.
func (s *Service) Login(ctx context.Context, email, password string) (string, AuthUser, error) {
	user, err := s.Store.FindActiveUserByEmail(ctx, email)
	if err != nil {
		return "", AuthUser{}, ErrInvalidCredentials
	}
	if err := CheckPassword(user.Password, password); err != nil {
		return "", AuthUser{}, ErrInvalidCredentials
	}

	token, err := GenerateToken(s.JWTSecret, Claims{UserID: user.ID, RoleID: user.RoleID, RoleName: user.RoleName}, s.TokenTTL)
	if err != nil {
		return "", AuthUser{}, err
	}

	if err := s.Store.UpdateLastLogin(ctx, user.ID); err != nil {
		return "", AuthUser{}, err
	}
	return token, user, nil
}

// CreateUser registers an account with the named role, for the HR
// provisioning endpoint and the boot seed.
func (s *Service) CreateUser(ctx context.Context, email, password, roleName string) (string, error) {
	roleID, err := s.Store.RoleIDByName(ctx, roleName)
	if err != nil {
		return "", err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return "", err
	}
	return s.Store.CreateUser(ctx, email, hash, roleID)
}
