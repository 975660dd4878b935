package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/supportdesk/triage-service/internal/api/dto"
	"github.com/supportdesk/triage-service/internal/domain"
)

// AnalyticsReader produces the business snapshot.
type AnalyticsReader interface {
	Snapshot(ctx context.Context) (*domain.AnalyticsSnapshot, error)
}

type MetricsHandler struct {
	analytics AnalyticsReader
}

func NewMetricsHandler(analytics AnalyticsReader) *MetricsHandler {
	return &MetricsHandler{analytics: analytics}
}

// Metrics GET /metrics.
func (h *MetricsHandler) Metrics(c *fiber.Ctx) error {
	snap, err := h.analytics.Snapshot(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewMetricsResponse(snap))
}
