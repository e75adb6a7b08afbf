package mercadopago

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func setupWebhookRouter(t *testing.T, secret string) *gin.Engine {
	t.Helper()
	previous := client
	client = NewClient(Config{AccessToken: "token", WebhookSecret: secret, BaseURL: "http://127.0.0.1:0"})
	t.Cleanup(func() { client = previous })

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/webhooks/mercadopago", HandleWebhook)
	return r
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	r := setupWebhookRouter(t, "secret")

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/mercadopago?data.id=123&type=payment",
		strings.NewReader(`{"type":"payment","data":{"id":"123"}}`))
	req.Header.Set("x-signature", "ts=1,v1=deadbeef")
	req.Header.Set("x-request-id", "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookIgnoresOtherTopics(t *testing.T) {
	r := setupWebhookRouter(t, "secret")

	sig := "ts=1700000000,v1=" + sign("secret", manifest("77", "req-9", "1700000000"))
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/mercadopago?data.id=77&type=merchant_order",
		strings.NewReader(`{"type":"merchant_order","data":{"id":"77"}}`))
	req.Header.Set("x-signature", sig)
	req.Header.Set("x-request-id", "req-9")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ignored":true`)
}

func TestCreatePixWithoutClient(t *testing.T) {
	previous := client
	client = nil
	t.Cleanup(func() { client = previous })

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/pix", CreatePixPayment)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/pix", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
