package classifier

import (
	"context"
	"fmt"
)

// Client sends an image to a hosted classification model and returns its raw JSON response.
type Client interface {
	Classify(ctx context.Context, model string, image []byte) ([]byte, error)
}

// UpstreamError reports a non-success status from the classifier.
type UpstreamError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("classifier returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("classifier returned status %d: %s", e.StatusCode, e.Body)
}
