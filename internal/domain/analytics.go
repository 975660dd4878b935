package domain

// FeedbackStatusCount is one bucket of the feedback status histogram.
type FeedbackStatusCount struct {
	Status        string
	Count         int64
	AvgConfidence float64
}

// AnalyticsSnapshot aggregates business and pipeline counters.
type AnalyticsSnapshot struct {
	TotalUsers       int64
	ActiveUsers      int64
	TierDistribution map[string]int64
	MonthlyRevenue   float64
	CancellationRate float64
	Metrics          map[string]float64
	FeedbackStats    []FeedbackStatusCount
}
