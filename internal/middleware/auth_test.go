package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func newProtectedRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw)
	r.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":    c.GetString("user_id"),
			"user_email": c.GetString("user_email"),
		})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	now := time.Now()

	valid := signHS256(t, testSecret, jwt.MapClaims{
		"sub":   "user-123",
		"email": "ana@example.com",
		"exp":   now.Add(time.Hour).Unix(),
	})
	expired := signHS256(t, testSecret, jwt.MapClaims{
		"sub": "user-123",
		"exp": now.Add(-time.Hour).Unix(),
	})
	wrongSecret := signHS256(t, "another-secret", jwt.MapClaims{
		"sub": "user-123",
		"exp": now.Add(time.Hour).Unix(),
	})
	noSubject := signHS256(t, testSecret, jwt.MapClaims{
		"exp": now.Add(time.Hour).Unix(),
	})
	noExpiry := signHS256(t, testSecret, jwt.MapClaims{
		"sub": "user-123",
	})

	tests := []struct {
		name           string
		header         string
		expectedStatus int
	}{
		{name: "Missing header", header: "", expectedStatus: http.StatusUnauthorized},
		{name: "Wrong scheme", header: "Token " + valid, expectedStatus: http.StatusUnauthorized},
		{name: "Valid token", header: "Bearer " + valid, expectedStatus: http.StatusOK},
		{name: "Expired token", header: "Bearer " + expired, expectedStatus: http.StatusUnauthorized},
		{name: "Wrong secret", header: "Bearer " + wrongSecret, expectedStatus: http.StatusUnauthorized},
		{name: "Missing subject", header: "Bearer " + noSubject, expectedStatus: http.StatusUnauthorized},
		{name: "Missing expiry", header: "Bearer " + noExpiry, expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newProtectedRouter(AuthMiddleware())
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			assert.Equal(t, tt.expectedStatus, resp.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Contains(t, resp.Body.String(), `"user_id":"user-123"`)
				assert.Contains(t, resp.Body.String(), `"user_email":"ana@example.com"`)
			}
		})
	}
}

func TestAuthMiddlewareRejectsNoneAlgorithm(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "user-123",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	router := newProtectedRouter(AuthMiddleware())
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+unsigned)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestOptionalAuthMiddleware(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	valid := signHS256(t, testSecret, jwt.MapClaims{
		"sub": "user-123",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	tests := []struct {
		name       string
		header     string
		expectedID string
	}{
		{name: "Anonymous", header: "", expectedID: ""},
		{name: "Garbage token", header: "Bearer abc.def.ghi", expectedID: ""},
		{name: "Valid token", header: "Bearer " + valid, expectedID: "user-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newProtectedRouter(OptionalAuthMiddleware())
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			assert.Equal(t, http.StatusOK, resp.Code)
			assert.Contains(t, resp.Body.String(), `"user_id":"`+tt.expectedID+`"`)
		})
	}
}

func TestIsExpired(t *testing.T) {
	past := signHS256(t, testSecret, jwt.MapClaims{"sub": "u", "exp": time.Now().Add(-time.Minute).Unix()})
	future := signHS256(t, testSecret, jwt.MapClaims{"sub": "u", "exp": time.Now().Add(time.Minute).Unix()})

	assert.True(t, isExpired(past))
	assert.False(t, isExpired(future))
	assert.False(t, isExpired("not-a-jwt"))
}
