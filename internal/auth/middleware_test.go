package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.RegisteredClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func newRouter(v *Verifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", v.Middleware(), func(c *gin.Context) {
		userID, _ := GetUserID(c.Request.Context())
		c.String(http.StatusOK, userID)
	})
	return router
}

func TestMiddleware(t *testing.T) {
	valid := jwt.RegisteredClaims{Subject: "user-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}

	cases := []struct {
		name     string
		verifier *Verifier
		header   string
		status   int
		body     string
	}{
		{"valid token", NewVerifier(testSecret, ""), "Bearer " + signToken(t, valid, testSecret), http.StatusOK, "user-1"},
		{"missing header", NewVerifier(testSecret, ""), "", http.StatusUnauthorized, ""},
		{"wrong scheme", NewVerifier(testSecret, ""), "Basic abc", http.StatusUnauthorized, ""},
		{"wrong secret", NewVerifier(testSecret, ""), "Bearer " + signToken(t, valid, "other"), http.StatusUnauthorized, ""},
		{"expired", NewVerifier(testSecret, ""), "Bearer " + signToken(t, jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		}, testSecret), http.StatusUnauthorized, ""},
		{"missing subject", NewVerifier(testSecret, ""), "Bearer " + signToken(t, jwt.RegisteredClaims{}, testSecret), http.StatusUnauthorized, ""},
		{"wrong audience", NewVerifier(testSecret, "skin-api"), "Bearer " + signToken(t, valid, testSecret), http.StatusUnauthorized, ""},
		{"matching audience", NewVerifier(testSecret, "skin-api"), "Bearer " + signToken(t, jwt.RegisteredClaims{
			Subject:  "user-2",
			Audience: jwt.ClaimStrings{"skin-api"},
		}, testSecret), http.StatusOK, "user-2"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp := httptest.NewRecorder()
			newRouter(tc.verifier).ServeHTTP(resp, req)

			if resp.Code != tc.status {
				t.Fatalf("expected status %d, got %d (%s)", tc.status, resp.Code, resp.Body.String())
			}
			if tc.body != "" && resp.Body.String() != tc.body {
				t.Fatalf("unexpected body: %s", resp.Body.String())
			}
		})
	}
}
