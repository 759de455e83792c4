package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/skin-analysis/internal/analysis"
	"github.com/example/skin-analysis/internal/classifier"
	"github.com/example/skin-analysis/internal/logging"
	"github.com/example/skin-analysis/internal/metrics"
	"github.com/example/skin-analysis/internal/repository"
	"github.com/example/skin-analysis/internal/resilience"
)

const (
	processingMarker = "processing"
	processingTTL    = time.Minute
)

// ErrProcessing is returned by GetResult while an analysis is still running.
var ErrProcessing = errors.New("analysis still processing")

// AnalysisRepository defines the persistence operations needed by the use case.
type AnalysisRepository interface {
	SaveRecord(ctx context.Context, record *repository.AnalysisRecord) error
	FindByRequestIDAndUser(ctx context.Context, requestID, userID string) (*repository.AnalysisRecord, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*repository.AnalysisRecord, error)
	AggregateMetrics(ctx context.Context, kind string) (*repository.MetricsAggregation, error)
}

// Options configures the analysis use case. Nil thresholds, tables and recorders get defaults.
type Options struct {
	ConditionModel string
	ToneModel      string
	Thresholds     *analysis.Thresholds
	ResultTTL      time.Duration
	Assembler      *analysis.Assembler
	Tones          *analysis.ToneTable
	Metrics        metrics.Recorder
}

// AnalysisUseCase runs uploaded images through the classifier and the normalization core.
type AnalysisUseCase struct {
	repo       AnalysisRepository
	cache      Cache
	classifier classifier.Client
	logger     *zap.Logger
	opts       Options
	policy     resilience.Policy
	now        func() time.Time
}

// ConditionAnalysis is the outcome of a skin condition analysis.
type ConditionAnalysis struct {
	RequestID  string                    `json:"request_id"`
	Result     analysis.AnalysisResult   `json:"result"`
	Report     analysis.Report           `json:"report"`
	Conditions []analysis.ConditionScore `json:"detected_conditions"`
	CreatedAt  time.Time                 `json:"created_at"`
}

// ToneAnalysis is the outcome of a skin tone analysis.
type ToneAnalysis struct {
	RequestID         string              `json:"request_id"`
	Result            analysis.ToneResult `json:"result"`
	ConfidencePercent string              `json:"confidence_percent,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
}

// StoredAnalysis is a previously computed analysis, loaded from cache or history.
type StoredAnalysis struct {
	RequestID string          `json:"request_id"`
	UserID    string          `json:"user_id"`
	Kind      string          `json:"kind"`
	Success   bool            `json:"success"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewAnalysisUseCase constructs a new use case instance.
func NewAnalysisUseCase(repo AnalysisRepository, cache Cache, client classifier.Client, opts Options, logger *zap.Logger) *AnalysisUseCase {
	if opts.Assembler == nil {
		opts.Assembler = analysis.NewAssembler(analysis.NewVocabulary())
	}
	if opts.Tones == nil {
		opts.Tones = analysis.NewToneTable()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	thresholds := analysis.DefaultThresholds()
	if opts.Thresholds != nil {
		thresholds = *opts.Thresholds
	}
	opts.Thresholds = &thresholds
	if opts.ResultTTL <= 0 {
		opts.ResultTTL = 5 * time.Minute
	}
	return &AnalysisUseCase{
		repo:       repo,
		cache:      cache,
		classifier: client,
		logger:     logger.Named("analysis_usecase"),
		opts:       opts,
		policy:     resilience.DefaultPolicy(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// AnalyzeSkin classifies skin conditions in image. Upstream failures are reported as an
// unsuccessful result, not as an error; errors are reserved for cache and persistence faults.
func (uc *AnalysisUseCase) AnalyzeSkin(ctx context.Context, userID string, image []byte) (*ConditionAnalysis, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.analyze_skin", requestID)

	if err := uc.markProcessing(ctx, requestID); err != nil {
		opLogger.Error("failed to set processing flag", zap.Error(err))
		return nil, err
	}

	var result analysis.AnalysisResult
	raw, err := uc.classify(ctx, repository.KindCondition, uc.opts.ConditionModel, image)
	if err != nil {
		opLogger.Warn("condition classifier failed", zap.Error(err))
		result = analysis.Failed("Analysis failed: " + err.Error())
	} else {
		result = analysis.Analyze(raw, *uc.opts.Thresholds)
		opLogger.Debug("classifier response normalized",
			zap.String("shape", analysis.DetectShape(raw)),
			zap.Bool("detected", result.HasFindings()),
		)
	}

	out := &ConditionAnalysis{
		RequestID:  requestID,
		Result:     result,
		Report:     uc.opts.Assembler.Assemble(result),
		Conditions: uc.opts.Assembler.DetectedConditions(result),
		CreatedAt:  uc.now(),
	}

	record := &repository.AnalysisRecord{
		RequestID:       requestID,
		UserID:          userID,
		Kind:            repository.KindCondition,
		Success:         result.Success,
		Message:         result.Message,
		Summary:         out.Report.Summary,
		Recommendations: out.Report.Recommendations,
		CreatedAt:       out.CreatedAt,
	}
	if result.Primary != nil {
		record.PrimaryLabel = result.Primary.Label
		record.Confidence = result.Primary.Confidence
	}
	if err := uc.store(ctx, opLogger, record, out); err != nil {
		return nil, err
	}

	uc.opts.Metrics.ObserveAnalysis(repository.KindCondition, conditionOutcome(result), len(out.Conditions))
	return out, nil
}

// AnalyzeTone classifies the dominant skin tone in image.
func (uc *AnalysisUseCase) AnalyzeTone(ctx context.Context, userID string, image []byte) (*ToneAnalysis, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.analyze_tone", requestID)

	if err := uc.markProcessing(ctx, requestID); err != nil {
		opLogger.Error("failed to set processing flag", zap.Error(err))
		return nil, err
	}

	var result analysis.ToneResult
	raw, err := uc.classify(ctx, repository.KindTone, uc.opts.ToneModel, image)
	if err != nil {
		opLogger.Warn("tone classifier failed", zap.Error(err))
		result = analysis.ToneFailed("An error occurred during skin tone analysis: " + err.Error())
	} else {
		result = uc.opts.Tones.AnalyzeTone(raw)
	}

	out := &ToneAnalysis{RequestID: requestID, Result: result, CreatedAt: uc.now()}
	if result.Success {
		out.ConfidencePercent = analysis.FormatPercent(result.Confidence, 1) + "%"
	}

	record := &repository.AnalysisRecord{
		RequestID:    requestID,
		UserID:       userID,
		Kind:         repository.KindTone,
		Success:      result.Success,
		PrimaryLabel: result.RawClass,
		Confidence:   result.Confidence,
		Message:      result.Message,
		Summary:      result.Description,
		CreatedAt:    out.CreatedAt,
	}
	if err := uc.store(ctx, opLogger, record, out); err != nil {
		return nil, err
	}

	outcome, detected := "failed", 0
	if result.Success {
		outcome, detected = "detected", 1
	}
	uc.opts.Metrics.ObserveAnalysis(repository.KindTone, outcome, detected)
	return out, nil
}

// GetResult retrieves a cached analysis outcome or loads it from history.
func (uc *AnalysisUseCase) GetResult(ctx context.Context, userID, requestID string) (*StoredAnalysis, error) {
	opLogger := logging.WithOperation(uc.logger, "usecase.get_result", requestID)

	cached, err := uc.cacheGet(ctx, requestID, "cache.get.result", resultKey(requestID))
	switch {
	case err == nil && cached == processingMarker:
		return nil, ErrProcessing
	case err == nil:
		var payload StoredAnalysis
		if err := json.Unmarshal([]byte(cached), &payload); err != nil {
			opLogger.Warn("failed to decode cached result", zap.Error(err))
		} else if payload.UserID == userID {
			return &payload, nil
		}
	case !errors.Is(err, redis.Nil):
		opLogger.Warn("failed to read cache", zap.Error(err))
	}

	record, err := uc.repo.FindByRequestIDAndUser(ctx, requestID, userID)
	if err != nil {
		return nil, err
	}
	stored := &StoredAnalysis{
		RequestID: record.RequestID,
		UserID:    record.UserID,
		Kind:      record.Kind,
		Success:   record.Success,
		CreatedAt: record.CreatedAt,
	}
	if record.Payload != "" {
		stored.Payload = json.RawMessage(record.Payload)
	}
	return stored, nil
}

// ListHistory returns a user's most recent analyses, newest first.
func (uc *AnalysisUseCase) ListHistory(ctx context.Context, userID string, limit int) ([]*repository.AnalysisRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	records, err := uc.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, logging.NewOperationError("usecase.list_history", "", err)
	}
	return records, nil
}

func (uc *AnalysisUseCase) classify(ctx context.Context, kind, model string, image []byte) ([]byte, error) {
	started := time.Now()
	raw, err := uc.classifier.Classify(ctx, model, image)
	uc.opts.Metrics.ObserveUpstream(kind, time.Since(started), err)
	return raw, err
}

func (uc *AnalysisUseCase) markProcessing(ctx context.Context, requestID string) error {
	return resilience.Do(ctx, uc.policy, uc.logger, "cache.set.processing", requestID, func() error {
		return uc.cache.Set(ctx, resultKey(requestID), processingMarker, processingTTL)
	})
}

// store persists the record with its serialized payload and caches it for GetResult.
func (uc *AnalysisUseCase) store(ctx context.Context, opLogger *zap.Logger, record *repository.AnalysisRecord, payload any) error {
	serialized, err := json.Marshal(payload)
	if err != nil {
		opLogger.Error("failed to serialize analysis result", zap.Error(err))
		return logging.NewOperationError("usecase.serialize_result", record.RequestID, err)
	}
	record.Payload = string(serialized)

	if err := uc.repo.SaveRecord(ctx, record); err != nil {
		wrapped := logging.NewOperationError("usecase.save_record", record.RequestID, err)
		opLogger.Error("failed to persist analysis record", zap.Error(wrapped))
		return wrapped
	}

	cached, err := json.Marshal(StoredAnalysis{
		RequestID: record.RequestID,
		UserID:    record.UserID,
		Kind:      record.Kind,
		Success:   record.Success,
		Payload:   serialized,
		CreatedAt: record.CreatedAt,
	})
	if err != nil {
		return logging.NewOperationError("usecase.serialize_result", record.RequestID, err)
	}

	if err := resilience.Do(ctx, uc.policy, uc.logger, "cache.set.result", record.RequestID, func() error {
		return uc.cache.Set(ctx, resultKey(record.RequestID), string(cached), uc.opts.ResultTTL)
	}); err != nil {
		opLogger.Error("failed to cache analysis result", zap.Error(err))
		return err
	}
	return nil
}

// cacheGet returns redis.Nil on a miss. Misses are not failures and skip the retry logging.
func (uc *AnalysisUseCase) cacheGet(ctx context.Context, requestID, operation, key string) (string, error) {
	var (
		result string
		miss   bool
	)
	err := resilience.Do(ctx, uc.policy, uc.logger, operation, requestID, func() error {
		value, err := uc.cache.Get(ctx, key)
		if errors.Is(err, redis.Nil) {
			miss = true
			return nil
		}
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		return "", err
	}
	if miss {
		return "", redis.Nil
	}
	return result, nil
}

func conditionOutcome(result analysis.AnalysisResult) string {
	switch {
	case !result.Success:
		return "failed"
	case result.HasFindings():
		return "detected"
	default:
		return "nothing_detected"
	}
}
