package dto

import "github.com/supportdesk/triage-service/internal/domain"

// MetricsResponse is the business snapshot served by GET /metrics.
type MetricsResponse struct {
	TotalUsers       int64                `json:"total_users"`
	ActiveUsers      int64                `json:"active_users"`
	TierDistribution map[string]int64     `json:"tier_distribution"`
	MonthlyRevenue   float64              `json:"monthly_revenue"`
	CancellationRate float64              `json:"cancellation_rate"`
	Metrics          map[string]float64   `json:"metrics"`
	Feedback         []FeedbackStatusStat `json:"feedback"`
}

// FeedbackStatusStat is one row of the decision histogram.
type FeedbackStatusStat struct {
	Status        string  `json:"status"`
	Count         int64   `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
}

func NewMetricsResponse(s *domain.AnalyticsSnapshot) MetricsResponse {
	stats := make([]FeedbackStatusStat, 0, len(s.FeedbackStats))
	for _, f := range s.FeedbackStats {
		stats = append(stats, FeedbackStatusStat{Status: f.Status, Count: f.Count, AvgConfidence: f.AvgConfidence})
	}
	return MetricsResponse{
		TotalUsers:       s.TotalUsers,
		ActiveUsers:      s.ActiveUsers,
		TierDistribution: s.TierDistribution,
		MonthlyRevenue:   s.MonthlyRevenue,
		CancellationRate: s.CancellationRate,
		Metrics:          s.Metrics,
		Feedback:         stats,
	}
}
