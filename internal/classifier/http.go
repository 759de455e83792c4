package classifier

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/example/skin-analysis/internal/imageprocessor"
	"github.com/example/skin-analysis/internal/logging"
)

// maxErrorBody caps how much of an upstream error body is kept in UpstreamError.
const maxErrorBody = 512

// Options configures the HTTP classifier client.
type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RetryCount int
}

// HTTPClient calls a serverless inference endpoint of the form POST {base}/{model}?api_key=...
// with the base64 image as a form-encoded body.
type HTTPClient struct {
	client *resty.Client
	apiKey string
	logger *zap.Logger
}

// NewHTTPClient builds a classifier client with retry on transport errors and 5xx/429 responses.
func NewHTTPClient(opts Options, logger *zap.Logger) *HTTPClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)
	client.AddRetryCondition(retryCondition)

	return &HTTPClient{
		client: client,
		apiKey: opts.APIKey,
		logger: logger.Named("classifier"),
	}
}

func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

// Classify posts the image to model and returns the response body.
func (c *HTTPClient) Classify(ctx context.Context, model string, image []byte) ([]byte, error) {
	img := imageprocessor.Image{Data: image}
	started := time.Now()

	req := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(img.Base64())
	if c.apiKey != "" {
		req.SetQueryParam("api_key", c.apiKey)
	}

	resp, err := req.Post("/" + strings.TrimLeft(model, "/"))
	if err != nil {
		wrapped := logging.NewOperationError("classifier.classify", "", err)
		c.logger.Error("classifier request failed", zap.Error(wrapped), zap.String("model", model))
		return nil, wrapped
	}

	c.logger.Debug("classifier responded",
		zap.String("model", model),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("latency", time.Since(started)),
	)

	if !resp.IsSuccess() {
		body := resp.String()
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		wrapped := logging.NewOperationError("classifier.classify", "", &UpstreamError{StatusCode: resp.StatusCode(), Body: body})
		c.logger.Warn("classifier returned non-success status", zap.Error(wrapped), zap.String("model", model))
		return nil, wrapped
	}
	return resp.Body(), nil
}
