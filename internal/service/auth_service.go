package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-router/internal/auth"
	"github.com/spec-kit/ticket-router/internal/config"
	apperrors "github.com/spec-kit/ticket-router/pkg/util/errorutil"
)

// AuthService handles operator login.
type AuthService struct {
	operatorEmail string
	passwordHash  string
	tokenMgr      *auth.TokenManager
	logger        *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, tokens *auth.TokenManager, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		operatorEmail: strings.ToLower(strings.TrimSpace(cfg.OperatorEmail)),
		passwordHash:  cfg.OperatorPasswordHash,
		tokenMgr:      tokens,
		logger:        logger,
	}
}

// Login checks the operator credentials and issues an access token.
func (s *AuthService) Login(_ context.Context, email, password string) (string, time.Time, error) {
	if s.operatorEmail == "" || s.passwordHash == "" {
		return "", time.Time{}, apperrors.NewUnauthorized("operator login is not configured")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email != s.operatorEmail {
		return "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.ComparePassword(s.passwordHash, password); err != nil {
		s.logger.Info("operator login rejected", zap.String("email", email))
		return "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, expiresAt, err := s.tokenMgr.GenerateToken(email, auth.RoleAdmin)
	if err != nil {
		return "", time.Time{}, apperrors.NewInternalError(err)
	}
	return token, expiresAt, nil
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
