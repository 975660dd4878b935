package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/supportdesk/triage-service/internal/domain"
	apperrors "github.com/supportdesk/triage-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// AuthMiddleware validates operator bearer tokens.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(principalKey, &domain.Operator{Email: claims.Subject, Role: claims.Role})
	return c.Next()
}

// OperatorFromContext retrieves the authenticated operator.
func OperatorFromContext(c *fiber.Ctx) (*domain.Operator, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	op, ok := val.(*domain.Operator)
	return op, ok
}
