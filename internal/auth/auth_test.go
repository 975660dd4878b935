package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/supportdesk/triage-service/internal/domain"
	apperrors "github.com/supportdesk/triage-service/pkg/util/errorutil"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)

	tok, err := tm.GenerateToken(domain.Operator{Email: "ops@example.com", Role: domain.OperatorRoleAdmin})
	require.NoError(t, err)

	claims, err := tm.ParseToken(tok.Value)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Subject)
	assert.Equal(t, domain.OperatorRoleAdmin, claims.Role)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), tok.ExpiresAt, 5*time.Second)
}

func TestTokenManager_RejectsForeignSecret(t *testing.T) {
	tok, err := NewTokenManager("one", 5).GenerateToken(domain.Operator{Email: "ops@example.com", Role: domain.OperatorRoleAdmin})
	require.NoError(t, err)

	_, err = NewTokenManager("two", 5).ParseToken(tok.Value)
	assert.Error(t, err)
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	tok, err := tm.GenerateToken(domain.Operator{Email: "ops@example.com", Role: domain.OperatorRoleAdmin})
	require.NoError(t, err)

	_, err = tm.ParseToken(tok.Value)
	assert.Error(t, err)
}

func TestPassword_CompareMatchesHash(t *testing.T) {
	hash, err := HashPassword("hunter2", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NoError(t, VerifyPassword(hash, "hunter2"))
	assert.ErrorIs(t, VerifyPassword(hash, "hunter3"), ErrPasswordMismatch)
}

func TestPassword_MalformedHash(t *testing.T) {
	err := VerifyPassword("not-a-bcrypt-hash", "hunter2")

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrPasswordMismatch)
}

func TestHashPassword_OutOfRangeCostUsesDefault(t *testing.T) {
	hash, err := HashPassword("hunter2", 99)
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func newProtectedApp(tm *TokenManager, roles ...domain.OperatorRole) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		de := apperrors.ToDomainError(err)
		return c.SendStatus(de.HTTPStatus)
	}})
	mw := NewAuthMiddleware(tm)
	app.Get("/private", mw.Handle, RequireRole(roles...), func(c *fiber.Ctx) error {
		op, _ := OperatorFromContext(c)
		return c.SendString(op.Email)
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	analyst, err := tm.GenerateToken(domain.Operator{Email: "analyst@example.com", Role: domain.OperatorRoleAnalyst})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		roles  []domain.OperatorRole
		want   int
	}{
		{"missing header", "", nil, http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", nil, http.StatusUnauthorized},
		{"garbage token", "Bearer abc", nil, http.StatusUnauthorized},
		{"any role", "Bearer " + analyst.Value, nil, http.StatusOK},
		{"role allowed", "Bearer " + analyst.Value, []domain.OperatorRole{domain.OperatorRoleAdmin, domain.OperatorRoleAnalyst}, http.StatusOK},
		{"role denied", "Bearer " + analyst.Value, []domain.OperatorRole{domain.OperatorRoleAdmin}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := newProtectedApp(tm, tt.roles...).Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
