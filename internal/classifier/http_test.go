package classifier

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPClientClassify(t *testing.T) {
	t.Run("Should post base64 image to model path with api key", func(t *testing.T) {
		var gotPath, gotKey, gotBody, gotType string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotKey = r.URL.Query().Get("api_key")
			gotType = r.Header.Get("Content-Type")
			body, _ := io.ReadAll(r.Body)
			gotBody = string(body)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"predictions":{"acne":{"confidence":0.9}}}`))
		}))
		defer server.Close()

		client := NewHTTPClient(Options{BaseURL: server.URL + "/", APIKey: "key-1", Timeout: time.Second}, zap.NewNop())
		raw, err := client.Classify(context.Background(), "skin-model/1", []byte("image-bytes"))

		require.NoError(t, err)
		assert.JSONEq(t, `{"predictions":{"acne":{"confidence":0.9}}}`, string(raw))
		assert.Equal(t, "/skin-model/1", gotPath)
		assert.Equal(t, "key-1", gotKey)
		assert.Equal(t, "application/x-www-form-urlencoded", gotType)
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("image-bytes")), gotBody)
	})

	t.Run("Should retry server errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`{"predictions":[]}`))
		}))
		defer server.Close()

		client := NewHTTPClient(Options{BaseURL: server.URL, Timeout: time.Second, RetryCount: 2}, zap.NewNop())
		_, err := client.Classify(context.Background(), "m/1", []byte("x"))

		require.NoError(t, err)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("Should surface non-success status as UpstreamError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"bad key"}`))
		}))
		defer server.Close()

		client := NewHTTPClient(Options{BaseURL: server.URL, Timeout: time.Second}, zap.NewNop())
		_, err := client.Classify(context.Background(), "m/1", []byte("x"))

		var upstream *UpstreamError
		require.True(t, errors.As(err, &upstream))
		assert.Equal(t, http.StatusUnauthorized, upstream.StatusCode)
		assert.Contains(t, upstream.Error(), "bad key")
	})
}
