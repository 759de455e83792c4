package usecase

import (
	"context"

	"github.com/example/skin-analysis/internal/logging"
)

// MetricsSummary represents aggregated analysis insights.
type MetricsSummary struct {
	Kind                     string  `json:"kind,omitempty"`
	TotalRequests            int64   `json:"total_requests"`
	SuccessfulRequests       int64   `json:"successful_requests"`
	SuccessRate              float64 `json:"success_rate"`
	DetectionRate            float64 `json:"detection_rate"`
	AveragePrimaryConfidence float64 `json:"average_primary_confidence"`
}

// GetMetricsSummary aggregates analysis metrics from persisted records. An empty kind covers all analyses.
func (uc *AnalysisUseCase) GetMetricsSummary(ctx context.Context, kind string) (*MetricsSummary, error) {
	aggregation, err := uc.repo.AggregateMetrics(ctx, kind)
	if err != nil {
		return nil, logging.NewOperationError("usecase.metrics_summary", "", err)
	}

	summary := &MetricsSummary{
		Kind:                     kind,
		TotalRequests:            aggregation.TotalCount,
		SuccessfulRequests:       aggregation.SuccessCount,
		AveragePrimaryConfidence: aggregation.AverageConfidence,
	}
	if aggregation.TotalCount > 0 {
		summary.SuccessRate = float64(aggregation.SuccessCount) / float64(aggregation.TotalCount)
	}
	if aggregation.SuccessCount > 0 {
		summary.DetectionRate = float64(aggregation.DetectedCount) / float64(aggregation.SuccessCount)
	}
	return summary, nil
}
