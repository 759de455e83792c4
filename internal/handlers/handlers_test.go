package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/example/skin-analysis/internal/analysis"
	"github.com/example/skin-analysis/internal/auth"
	"github.com/example/skin-analysis/internal/repository"
	"github.com/example/skin-analysis/internal/usecase"
)

const testJWTSecret = "test-secret"

// pngHeader is enough of a PNG for content sniffing.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

type stubAnalyzer struct {
	condition *usecase.ConditionAnalysis
	tone      *usecase.ToneAnalysis
	stored    *usecase.StoredAnalysis
	err       error
	userIDs   []string
	images    [][]byte
}

func (s *stubAnalyzer) AnalyzeSkin(ctx context.Context, userID string, image []byte) (*usecase.ConditionAnalysis, error) {
	s.userIDs = append(s.userIDs, userID)
	s.images = append(s.images, image)
	return s.condition, s.err
}

func (s *stubAnalyzer) AnalyzeTone(ctx context.Context, userID string, image []byte) (*usecase.ToneAnalysis, error) {
	s.userIDs = append(s.userIDs, userID)
	return s.tone, s.err
}

func (s *stubAnalyzer) GetResult(ctx context.Context, userID, requestID string) (*usecase.StoredAnalysis, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.stored, nil
}

func (s *stubAnalyzer) ListHistory(ctx context.Context, userID string, limit int) ([]*repository.AnalysisRecord, error) {
	return []*repository.AnalysisRecord{{RequestID: "req-1", Kind: repository.KindCondition}}, s.err
}

func (s *stubAnalyzer) GetMetricsSummary(ctx context.Context, kind string) (*usecase.MetricsSummary, error) {
	return &usecase.MetricsSummary{Kind: kind, TotalRequests: 3}, s.err
}

func newTestRouter(uc Analyzer) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.MaxMultipartMemory = MaxUploadSize
	RegisterRoutes(router, uc, auth.NewVerifier(testJWTSecret, "").Middleware())
	return router
}

func uploadRequest(t *testing.T, path, contentType string, payload []byte) *http.Request {
	t.Helper()
	body, formType := buildMultipartBody(t, contentType, payload)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", formType)
	req.Header.Set("Authorization", "Bearer "+buildTestToken(t, "user-123"))
	return req
}

func TestAnalyzeRejectsLargeUpload(t *testing.T) {
	router := newTestRouter(&stubAnalyzer{})

	req := uploadRequest(t, "/api/skin-analysis/analyze", "image/png", bytes.Repeat([]byte("a"), MaxUploadSize+1))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status %d, got %d", http.StatusRequestEntityTooLarge, resp.Code)
	}
}

func TestAnalyzeRejectsUnsupportedContentType(t *testing.T) {
	router := newTestRouter(&stubAnalyzer{})

	req := uploadRequest(t, "/api/skin-analysis/analyze", "text/plain", []byte("hello"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected status %d, got %d", http.StatusUnsupportedMediaType, resp.Code)
	}
}

func TestAnalyzeRejectsMislabelledImage(t *testing.T) {
	router := newTestRouter(&stubAnalyzer{})

	req := uploadRequest(t, "/api/skin-tone/analyze", "image/png", []byte("definitely not a png"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected status %d, got %d", http.StatusUnsupportedMediaType, resp.Code)
	}
}

func TestAnalyzeRequiresToken(t *testing.T) {
	router := newTestRouter(&stubAnalyzer{})

	body, formType := buildMultipartBody(t, "image/png", pngHeader)
	req := httptest.NewRequest(http.MethodPost, "/api/skin-analysis/analyze", body)
	req.Header.Set("Content-Type", formType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, resp.Code)
	}
}

func TestAnalyzeSkinReturnsRankedAnalysis(t *testing.T) {
	primary := analysis.Finding{Label: "acne", Confidence: 0.92}
	result := analysis.AnalysisResult{
		Success:   true,
		Message:   analysis.MessageCompleted,
		Primary:   &primary,
		Secondary: []analysis.Finding{{Label: "dryness", Confidence: 0.55}},
	}
	assembler := analysis.NewAssembler(analysis.NewVocabulary())
	uc := &stubAnalyzer{condition: &usecase.ConditionAnalysis{
		RequestID:  "req-1",
		Result:     result,
		Report:     assembler.Assemble(result),
		Conditions: assembler.DetectedConditions(result),
	}}
	router := newTestRouter(uc)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, uploadRequest(t, "/api/skin-analysis/analyze", "image/png", pngHeader))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var body struct {
		Success   bool   `json:"success"`
		RequestID string `json:"request_id"`
		Analysis  struct {
			Confidence         float64                   `json:"confidence"`
			DetectedConditions []analysis.ConditionScore `json:"detectedConditions"`
			Summary            string                    `json:"summary"`
		} `json:"analysis"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if !body.Success || body.RequestID != "req-1" || body.Analysis.Confidence != 0.92 {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
	if len(body.Analysis.DetectedConditions) != 2 || body.Analysis.DetectedConditions[0].Name != "Acne" {
		t.Fatalf("unexpected conditions: %+v", body.Analysis.DetectedConditions)
	}
	if len(uc.userIDs) != 1 || uc.userIDs[0] != "user-123" {
		t.Fatalf("expected token subject to reach use case, got %v", uc.userIDs)
	}
	if !bytes.Equal(uc.images[0], pngHeader) {
		t.Fatal("expected uploaded bytes to reach use case")
	}
}

func TestAnalyzeSkinMapsUpstreamFailure(t *testing.T) {
	uc := &stubAnalyzer{condition: &usecase.ConditionAnalysis{
		RequestID: "req-2",
		Result:    analysis.Failed("Analysis failed: classifier returned status 503"),
	}}
	router := newTestRouter(uc)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, uploadRequest(t, "/api/skin-analysis/analyze", "image/png", pngHeader))

	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d", http.StatusBadGateway, resp.Code)
	}
}

func TestAnalyzeToneStatuses(t *testing.T) {
	table := analysis.NewToneTable()

	ok := newTestRouter(&stubAnalyzer{tone: &usecase.ToneAnalysis{RequestID: "r", Result: table.Classify("olive", 0.8), ConfidencePercent: "80.0%"}})
	resp := httptest.NewRecorder()
	ok.ServeHTTP(resp, uploadRequest(t, "/api/skin-tone/analyze", "image/png", pngHeader))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if !bytes.Contains(resp.Body.Bytes(), []byte(`"depth":"Medium"`)) {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}

	none := newTestRouter(&stubAnalyzer{tone: &usecase.ToneAnalysis{RequestID: "r", Result: analysis.ToneFailed(analysis.MessageNoTone)}})
	resp = httptest.NewRecorder()
	none.ServeHTTP(resp, uploadRequest(t, "/api/skin-tone/analyze", "image/png", pngHeader))
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, resp.Code)
	}
}

func TestGetResultStatuses(t *testing.T) {
	cases := []struct {
		name   string
		uc     *stubAnalyzer
		status int
	}{
		{"found", &stubAnalyzer{stored: &usecase.StoredAnalysis{RequestID: "req", Payload: json.RawMessage(`{}`)}}, http.StatusOK},
		{"processing", &stubAnalyzer{err: usecase.ErrProcessing}, http.StatusAccepted},
		{"missing", &stubAnalyzer{err: repository.ErrNotFound}, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/skin-analysis/result/req", nil)
			req.Header.Set("Authorization", "Bearer "+buildTestToken(t, "user-123"))
			resp := httptest.NewRecorder()
			newTestRouter(tc.uc).ServeHTTP(resp, req)

			if resp.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, resp.Code)
			}
		})
	}
}

func TestHealthEndpointsAreOpen(t *testing.T) {
	router := newTestRouter(&stubAnalyzer{})
	for _, path := range []string{"/health", "/api/skin-analysis/health", "/api/skin-tone/health"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", path, resp.Code)
		}
	}
}

func buildMultipartBody(t *testing.T, contentType string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="upload"`)
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("failed to create multipart part: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("failed to write payload: %v", err)
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	return body, writer.FormDataContentType()
}

func buildTestToken(t *testing.T, subject string) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}
