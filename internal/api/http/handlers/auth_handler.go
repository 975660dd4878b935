package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/supportdesk/triage-service/internal/api/dto"
	"github.com/supportdesk/triage-service/internal/domain"
	apperrors "github.com/supportdesk/triage-service/pkg/util/errorutil"
)

// Authenticator exchanges operator credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (domain.Token, error)
}

// AuthHandler exposes operator login.
type AuthHandler struct {
	auth Authenticator
}

func NewAuthHandler(a Authenticator) *AuthHandler {
	return &AuthHandler{auth: a}
}

// Login POST /auth/operators/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := validateRequest(req); err != nil {
		return err
	}

	token, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.TokenResponse{AccessToken: token.Value, ExpiresAt: token.ExpiresAt})
}
