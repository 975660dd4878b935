package service

import (
	"context"
	"strings"

	"github.com/supportdesk/triage-service/internal/auth"
	"github.com/supportdesk/triage-service/internal/config"
	"github.com/supportdesk/triage-service/internal/domain"
	apperrors "github.com/supportdesk/triage-service/pkg/util/errorutil"
)

// AuthService checks operator credentials and issues access tokens.
type AuthService struct {
	email        string
	passwordHash string
	tokenMgr     *auth.TokenManager
}

// NewAuthService builds the service. An empty password hash disables login.
func NewAuthService(cfg config.AuthConfig, tokens *auth.TokenManager) *AuthService {
	return &AuthService{
		email:        strings.TrimSpace(cfg.OperatorEmail),
		passwordHash: cfg.OperatorPasswordHash,
		tokenMgr:     tokens,
	}
}

// Login authenticates the configured operator.
func (s *AuthService) Login(_ context.Context, email, password string) (domain.Token, error) {
	if s.passwordHash == "" || !strings.EqualFold(strings.TrimSpace(email), s.email) {
		return domain.Token{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.VerifyPassword(s.passwordHash, password); err != nil {
		return domain.Token{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, err := s.tokenMgr.GenerateToken(domain.Operator{Email: s.email, Role: domain.OperatorRoleAdmin})
	if err != nil {
		return domain.Token{}, apperrors.NewInternalError(err)
	}
	return token, nil
}
