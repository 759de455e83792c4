package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/skin-analysis/internal/analysis"
	"github.com/example/skin-analysis/internal/auth"
	"github.com/example/skin-analysis/internal/imageprocessor"
	"github.com/example/skin-analysis/internal/repository"
	"github.com/example/skin-analysis/internal/usecase"
)

// MaxUploadSize is the largest accepted image, in bytes.
const MaxUploadSize = 10 << 20

// multipartOverhead is the slack allowed on top of the image for multipart framing.
const multipartOverhead = 1 << 20

// Analyzer is the use case surface served over HTTP.
type Analyzer interface {
	AnalyzeSkin(ctx context.Context, userID string, image []byte) (*usecase.ConditionAnalysis, error)
	AnalyzeTone(ctx context.Context, userID string, image []byte) (*usecase.ToneAnalysis, error)
	GetResult(ctx context.Context, userID, requestID string) (*usecase.StoredAnalysis, error)
	ListHistory(ctx context.Context, userID string, limit int) ([]*repository.AnalysisRecord, error)
	GetMetricsSummary(ctx context.Context, kind string) (*usecase.MetricsSummary, error)
}

// Options tunes route registration. Zero values fall back to defaults.
type Options struct {
	MaxUploadBytes int64
	MetricsHandler http.Handler
}

type routes struct {
	uc        Analyzer
	maxUpload int64
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
func RegisterRoutes(router *gin.Engine, uc Analyzer, authMiddleware gin.HandlerFunc, opts ...Options) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = MaxUploadSize
	}
	h := &routes{uc: uc, maxUpload: o.MaxUploadBytes}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if o.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(o.MetricsHandler))
	}

	skin := router.Group("/api/skin-analysis")
	skin.GET("/health", serviceHealth("Skin Analysis API"))
	skin.POST("/analyze", authMiddleware, h.analyzeSkin)
	skin.GET("/result/:id", authMiddleware, h.getResult)
	skin.GET("/history", authMiddleware, h.history)

	tone := router.Group("/api/skin-tone")
	tone.GET("/health", serviceHealth("Skin Tone Analysis API"))
	tone.POST("/analyze", authMiddleware, h.analyzeTone)

	router.GET("/api/metrics/summary", authMiddleware, h.metricsSummary)
}

func serviceHealth(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   name,
			"timestamp": time.Now().UnixMilli(),
		})
	}
}

func (h *routes) analyzeSkin(c *gin.Context) {
	userID, image, ok := h.readUpload(c)
	if !ok {
		return
	}

	out, err := h.uc.AnalyzeSkin(c.Request.Context(), userID, image)
	if err != nil {
		failure(c, http.StatusInternalServerError, "Analysis failed: "+err.Error())
		return
	}
	if !out.Result.Success {
		c.JSON(http.StatusBadGateway, gin.H{
			"success":    false,
			"request_id": out.RequestID,
			"error":      out.Result.Message,
		})
		return
	}

	body := gin.H{
		"detectedConditions": out.Conditions,
		"summary":            out.Report.Summary,
		"recommendations":    out.Report.Recommendations,
		"message":            out.Result.Message,
		"primary":            out.Result.Primary,
		"secondary":          out.Result.Secondary,
	}
	if out.Result.Primary != nil {
		body["confidence"] = out.Result.Primary.Confidence
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"request_id": out.RequestID,
		"analysis":   body,
	})
}

func (h *routes) analyzeTone(c *gin.Context) {
	userID, image, ok := h.readUpload(c)
	if !ok {
		return
	}

	out, err := h.uc.AnalyzeTone(c.Request.Context(), userID, image)
	if err != nil {
		failure(c, http.StatusInternalServerError, "An error occurred during skin tone analysis: "+err.Error())
		return
	}
	if !out.Result.Success {
		status := http.StatusBadGateway
		if out.Result.Message == analysis.MessageNoTone {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{
			"success":    false,
			"request_id": out.RequestID,
			"error":      out.Result.Message,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"request_id": out.RequestID,
		"rawClass":   out.Result.RawClass,
		"confidence": out.Result.Confidence,
		"skinTone": gin.H{
			"depth":                out.Result.Depth,
			"undertone":            out.Result.Undertone,
			"description":          out.Result.Description,
			"colorRecommendations": out.Result.ColorRecommendations,
			"makeupTips":           out.Result.StyleTips,
			"confidence":           out.ConfidencePercent,
		},
	})
}

func (h *routes) getResult(c *gin.Context) {
	userID, ok := auth.GetUserID(c.Request.Context())
	if !ok {
		failure(c, http.StatusUnauthorized, "unauthenticated")
		return
	}
	requestID := c.Param("id")
	if requestID == "" {
		failure(c, http.StatusBadRequest, "id is required")
		return
	}

	stored, err := h.uc.GetResult(c.Request.Context(), userID, requestID)
	switch {
	case errors.Is(err, usecase.ErrProcessing):
		c.JSON(http.StatusAccepted, gin.H{"success": true, "request_id": requestID, "status": "processing"})
		return
	case errors.Is(err, repository.ErrNotFound):
		failure(c, http.StatusNotFound, "result not found")
		return
	case err != nil:
		failure(c, http.StatusInternalServerError, "failed to load result")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    stored.Success,
		"request_id": stored.RequestID,
		"kind":       stored.Kind,
		"result":     stored.Payload,
		"created_at": stored.CreatedAt,
	})
}

func (h *routes) history(c *gin.Context) {
	userID, ok := auth.GetUserID(c.Request.Context())
	if !ok {
		failure(c, http.StatusUnauthorized, "unauthenticated")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	records, err := h.uc.ListHistory(c.Request.Context(), userID, limit)
	if err != nil {
		failure(c, http.StatusInternalServerError, "failed to load history")
		return
	}

	items := make([]gin.H, 0, len(records))
	for _, r := range records {
		items = append(items, gin.H{
			"request_id":    r.RequestID,
			"kind":          r.Kind,
			"success":       r.Success,
			"primary_label": r.PrimaryLabel,
			"confidence":    r.Confidence,
			"summary":       r.Summary,
			"created_at":    r.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "items": items})
}

func (h *routes) metricsSummary(c *gin.Context) {
	summary, err := h.uc.GetMetricsSummary(c.Request.Context(), c.Query("kind"))
	if err != nil {
		failure(c, http.StatusInternalServerError, "failed to aggregate metrics")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// readUpload validates the multipart "image" field and returns its bytes.
// It writes the error response itself and returns ok=false on failure.
func (h *routes) readUpload(c *gin.Context) (string, []byte, bool) {
	userID, ok := auth.GetUserID(c.Request.Context())
	if !ok {
		failure(c, http.StatusUnauthorized, "unauthenticated")
		return "", nil, false
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+multipartOverhead)
	file, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			failure(c, http.StatusRequestEntityTooLarge, h.tooLargeMessage())
			return "", nil, false
		}
		failure(c, http.StatusBadRequest, "No image file provided")
		return "", nil, false
	}
	if file.Size > h.maxUpload {
		failure(c, http.StatusRequestEntityTooLarge, h.tooLargeMessage())
		return "", nil, false
	}
	if file.Size == 0 {
		failure(c, http.StatusBadRequest, "No image file provided")
		return "", nil, false
	}
	if !imageprocessor.IsImageType(file.Header.Get("Content-Type")) {
		failure(c, http.StatusUnsupportedMediaType, "Invalid file type. Please upload an image file.")
		return "", nil, false
	}

	data, err := readFile(file)
	if err != nil {
		failure(c, http.StatusInternalServerError, "failed to read image")
		return "", nil, false
	}
	if _, err := imageprocessor.Prepare(data); err != nil {
		failure(c, http.StatusUnsupportedMediaType, "Invalid file type. Please upload an image file.")
		return "", nil, false
	}
	return userID, data, true
}

func (h *routes) tooLargeMessage() string {
	return fmt.Sprintf("File size too large. Please upload an image smaller than %dMB.", h.maxUpload>>20)
}

func readFile(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return io.ReadAll(src)
}

func failure(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": message})
}
