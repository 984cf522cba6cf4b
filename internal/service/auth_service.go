package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-crm-api/internal/core/auth"
	"go-crm-api/internal/repo"
	"go-crm-api/pkg/utils"

	"go-crm-api/internal/domain"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type AuthService struct {
	users *repo.UserRepo
	jwter *auth.JWTer
	log   *zap.Logger
}

func NewAuthService(users *repo.UserRepo, jwter *auth.JWTer, log *zap.Logger) *AuthService {
	return &AuthService{users: users, jwter: jwter, log: log}
}

func (s *AuthService) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return "", time.Time{}, err
	}
	if u == nil || !utils.CheckPassword(password, u.PasswordHash) {
		s.log.Warn("failed login attempt", zap.String("username", username))
		return "", time.Time{}, ErrInvalidCredentials
	}
	return s.jwter.Issue(u.ID, u.Role)
}

// EnsureAdmin 启动时保证存在一个管理员账号（幂等）。
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if u != nil {
		return nil
	}
	now := time.Now().UTC()
	return s.users.Create(ctx, &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: utils.HashPassword(password),
		Role:         "admin",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}
