package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/supportdesk/triage-service/internal/api/dto"
	"github.com/supportdesk/triage-service/internal/auth"
	"github.com/supportdesk/triage-service/internal/domain"
	"github.com/supportdesk/triage-service/internal/service"
	apperrors "github.com/supportdesk/triage-service/pkg/util/errorutil"
)

// FeedbackManager reads and corrects stored ticket outcomes.
type FeedbackManager interface {
	Get(ctx context.Context, ticketID string) (*service.FeedbackView, error)
	CorrectStatus(ctx context.Context, ticketID string, status domain.TicketStatus, note string, op domain.Operator) (*domain.FeedbackRecord, error)
}

// FeedbackHandler manages operator feedback endpoints.
type FeedbackHandler struct {
	feedback FeedbackManager
}

func NewFeedbackHandler(f FeedbackManager) *FeedbackHandler {
	return &FeedbackHandler{feedback: f}
}

// Get GET /feedback/:ticket_id.
func (h *FeedbackHandler) Get(c *fiber.Ctx) error {
	view, err := h.feedback.Get(c.UserContext(), c.Params("ticket_id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data":  dto.NewFeedbackResponse(view.Record),
		"audit": dto.NewAuditEntries(view.Audit),
	})
}

// Correct PATCH /feedback/:ticket_id.
func (h *FeedbackHandler) Correct(c *fiber.Ctx) error {
	op, ok := auth.OperatorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	var req dto.CorrectFeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validateRequest(req); err != nil {
		return err
	}
	status, ok := parseTerminalStatus(req.Status)
	if !ok {
		return apperrors.NewValidationError("status must be resolved or escalated", map[string]any{"status": req.Status})
	}

	record, err := h.feedback.CorrectStatus(c.UserContext(), c.Params("ticket_id"), status, strings.TrimSpace(req.Note), *op)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewFeedbackResponse(record)})
}

func parseTerminalStatus(raw string) (domain.TicketStatus, bool) {
	for _, s := range []domain.TicketStatus{domain.TicketStatusResolved, domain.TicketStatusEscalated} {
		if strings.EqualFold(strings.TrimSpace(raw), string(s)) {
			return s, true
		}
	}
	return "", false
}
