package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/supportdesk/triage-service/internal/api/dto"
	"github.com/supportdesk/triage-service/internal/pipeline"
	apperrors "github.com/supportdesk/triage-service/pkg/util/errorutil"
)

// HeaderRateLimitRemaining carries the requester's remaining admissions.
const HeaderRateLimitRemaining = "X-RateLimit-Remaining"

// QueryPipeline runs one support query.
type QueryPipeline interface {
	Handle(ctx context.Context, req pipeline.Request) (*pipeline.Response, error)
}

// QueryHandler serves the customer-facing query endpoint.
type QueryHandler struct {
	pipeline QueryPipeline
}

func NewQueryHandler(p QueryPipeline) *QueryHandler {
	return &QueryHandler{pipeline: p}
}

// Query POST /query. Empty text is left to the pipeline, which rejects it
// as a structural validation issue.
func (h *QueryHandler) Query(c *fiber.Ctx) error {
	var req dto.QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validateRequest(req); err != nil {
		return err
	}

	resp, err := h.pipeline.Handle(c.UserContext(), pipeline.Request{
		Text:      req.Text,
		UserEmail: req.UserEmail,
		SessionID: req.SessionID,
		ClientIP:  c.IP(),
	})
	if err != nil {
		return err
	}
	c.Set(HeaderRateLimitRemaining, strconv.Itoa(resp.RateLimitRemaining))
	return c.JSON(dto.NewQueryResponse(resp))
}
