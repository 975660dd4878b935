package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/supportdesk/triage-service/internal/auth"
	"github.com/supportdesk/triage-service/internal/config"
	"github.com/supportdesk/triage-service/internal/domain"
	apperrors "github.com/supportdesk/triage-service/pkg/util/errorutil"
)

func newAuthService(t *testing.T, password string) (*AuthService, *auth.TokenManager) {
	t.Helper()
	hash := ""
	if password != "" {
		var err error
		hash, err = auth.HashPassword(password, bcrypt.MinCost)
		require.NoError(t, err)
	}
	tokens := auth.NewTokenManager("secret", 10)
	return NewAuthService(config.AuthConfig{OperatorEmail: "ops@example.com", OperatorPasswordHash: hash}, tokens), tokens
}

func TestAuthService_LoginIssuesAdminToken(t *testing.T) {
	svc, tokens := newAuthService(t, "s3cret")

	tok, err := svc.Login(context.Background(), "OPS@example.com", "s3cret")
	require.NoError(t, err)

	claims, err := tokens.ParseToken(tok.Value)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Subject)
	assert.Equal(t, domain.OperatorRoleAdmin, claims.Role)
}

func TestAuthService_LoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newAuthService(t, "s3cret")

	_, err := svc.Login(context.Background(), "ops@example.com", "wrong")
	assert.True(t, apperrors.HasCode(err, "UNAUTHORIZED"))

	_, err = svc.Login(context.Background(), "someone@example.com", "s3cret")
	assert.True(t, apperrors.HasCode(err, "UNAUTHORIZED"))
}

func TestAuthService_LoginDisabledWithoutHash(t *testing.T) {
	svc, _ := newAuthService(t, "")

	_, err := svc.Login(context.Background(), "ops@example.com", "")
	assert.True(t, apperrors.HasCode(err, "UNAUTHORIZED"))
}
