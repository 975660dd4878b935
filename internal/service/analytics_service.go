package service

import (
	"context"

	"github.com/supportdesk/triage-service/internal/domain"
	"github.com/supportdesk/triage-service/internal/repository"
	apperrors "github.com/supportdesk/triage-service/pkg/util/errorutil"
)

// AnalyticsService serves the aggregate business view behind GET /metrics.
type AnalyticsService struct {
	repo repository.AnalyticsRepository
}

func NewAnalyticsService(repo repository.AnalyticsRepository) *AnalyticsService {
	return &AnalyticsService{repo: repo}
}

func (s *AnalyticsService) Snapshot(ctx context.Context) (*domain.AnalyticsSnapshot, error) {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return snap, nil
}
