package repository

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/skin-analysis/internal/resilience"
)

// ErrNotFound is returned when no record matches a lookup.
var ErrNotFound = errors.New("analysis record not found")

// Record kinds.
const (
	KindCondition = "condition"
	KindTone      = "tone"
)

// AnalysisRecord is one completed analysis request, stored for history and metrics.
type AnalysisRecord struct {
	ID              uint      `gorm:"primaryKey"`
	RequestID       string    `gorm:"column:request_id;uniqueIndex;size:64"`
	UserID          string    `gorm:"column:user_id;index;size:64"`
	Kind            string    `gorm:"column:kind;size:16;index"`
	Success         bool      `gorm:"column:success"`
	PrimaryLabel    string    `gorm:"column:primary_label;size:128"`
	Confidence      float64   `gorm:"column:confidence"`
	Message         string    `gorm:"column:message;size:512"`
	Summary         string    `gorm:"column:summary;type:text"`
	Recommendations string    `gorm:"column:recommendations;type:text"`
	Payload         string    `gorm:"column:payload;type:text"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

// TableName overrides the default table name.
func (AnalysisRecord) TableName() string {
	return "analysis_records"
}

// MetricsAggregation holds aggregate values over stored records.
type MetricsAggregation struct {
	TotalCount        int64   `gorm:"column:total_count"`
	SuccessCount      int64   `gorm:"column:success_count"`
	DetectedCount     int64   `gorm:"column:detected_count"`
	AverageConfidence float64 `gorm:"column:average_confidence"`
}

// AnalysisRepository provides persistence APIs for analysis records.
type AnalysisRepository struct {
	db     *gorm.DB
	logger *zap.Logger
	policy resilience.Policy
}

// NewAnalysisRepository creates a new repository instance.
func NewAnalysisRepository(db *gorm.DB, logger *zap.Logger) *AnalysisRepository {
	return &AnalysisRepository{
		db:     db,
		logger: logger.Named("analysis_repository"),
		policy: resilience.DefaultPolicy(),
	}
}

// AutoMigrate ensures the schema is available.
func (r *AnalysisRepository) AutoMigrate(ctx context.Context) error {
	return r.executeWithRetry(ctx, "repository.auto_migrate", "", func() error {
		return r.db.WithContext(ctx).AutoMigrate(&AnalysisRecord{})
	})
}

// SaveRecord persists an analysis record.
func (r *AnalysisRepository) SaveRecord(ctx context.Context, record *AnalysisRecord) error {
	return r.executeWithRetry(ctx, "repository.save_record", record.RequestID, func() error {
		return r.db.WithContext(ctx).Create(record).Error
	})
}

// FindByRequestIDAndUser retrieves the record matching the request and owner.
func (r *AnalysisRepository) FindByRequestIDAndUser(ctx context.Context, requestID, userID string) (*AnalysisRecord, error) {
	var record AnalysisRecord
	err := r.executeWithRetry(ctx, "repository.find_record", requestID, func() error {
		err := r.db.WithContext(ctx).First(&record, "request_id = ? AND user_id = ?", requestID, userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByUser returns the most recent records of a user, newest first.
func (r *AnalysisRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*AnalysisRecord, error) {
	var records []*AnalysisRecord
	err := r.executeWithRetry(ctx, "repository.list_records", "", func() error {
		return r.db.WithContext(ctx).
			Where("user_id = ?", userID).
			Order("created_at DESC").
			Limit(limit).
			Find(&records).Error
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// AggregateMetrics computes totals over all records of a kind; an empty kind aggregates everything.
func (r *AnalysisRepository) AggregateMetrics(ctx context.Context, kind string) (*MetricsAggregation, error) {
	var agg MetricsAggregation
	err := r.executeWithRetry(ctx, "repository.aggregate_metrics", "", func() error {
		query := r.db.WithContext(ctx).Model(&AnalysisRecord{}).Select(
			"COUNT(*) AS total_count, " +
				"COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0) AS success_count, " +
				"COALESCE(SUM(CASE WHEN success AND primary_label <> '' THEN 1 ELSE 0 END), 0) AS detected_count, " +
				"COALESCE(AVG(CASE WHEN success AND primary_label <> '' THEN confidence END), 0) AS average_confidence",
		)
		if kind != "" {
			query = query.Where("kind = ?", kind)
		}
		return query.Scan(&agg).Error
	})
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

func (r *AnalysisRepository) executeWithRetry(ctx context.Context, operation, requestID string, fn func() error) error {
	return resilience.Do(ctx, r.policy, r.logger, operation, requestID, fn)
}
