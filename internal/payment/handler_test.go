package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubFetcher struct {
	status Status
	err    error
	calls  int
}

func (s *stubFetcher) FetchStatus(_ context.Context, _ string) (Status, error) {
	s.calls++
	return s.status, s.err
}

func withFetcher(t *testing.T, provider Provider, f StatusFetcher) {
	t.Helper()
	previous, had := fetchers[provider]
	fetchers[provider] = f
	t.Cleanup(func() {
		if had {
			fetchers[provider] = previous
		} else {
			delete(fetchers, provider)
		}
	})
}

func TestRefreshLeavesSettledPaymentsAlone(t *testing.T) {
	fetcher := &stubFetcher{status: StatusRefunded}
	withFetcher(t, ProviderMercadoPago, fetcher)

	p := Payment{ID: "p1", Provider: ProviderMercadoPago, ExternalID: "mp-1", Status: StatusApproved}

	assert.Equal(t, p, Refresh(context.Background(), p, time.Now()))
	assert.Equal(t, 0, fetcher.calls)
}

func TestRefreshExpiresStalePix(t *testing.T) {
	mock := setupMockDB(t)
	fetcher := &stubFetcher{status: StatusApproved}
	withFetcher(t, ProviderMercadoPago, fetcher)

	now := time.Now()
	past := now.Add(-time.Minute)
	p := Payment{ID: "p1", Provider: ProviderMercadoPago, Method: MethodPix, ExternalID: "mp-1", Status: StatusPending, ExpiresAt: &past}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "payments" (.+)FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(paymentColumns).
			AddRow("p1", "u1", "mercadopago", "pix", "mp-1", "pending", 1990, "BRL", 30))
	mock.ExpectExec(`UPDATE "payments"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got := Refresh(context.Background(), p, now)

	assert.Equal(t, StatusExpired, got.Status)
	assert.Equal(t, 0, fetcher.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshAppliesProviderStatus(t *testing.T) {
	mock := setupMockDB(t)
	withFetcher(t, ProviderMercadoPago, &stubFetcher{status: StatusApproved})

	p := Payment{ID: "p1", Provider: ProviderMercadoPago, Method: MethodPix, ExternalID: "mp-1", Status: StatusPending}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "payments" (.+)FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(paymentColumns).
			AddRow("p1", "u1", "mercadopago", "pix", "mp-1", "pending", 1990, "BRL", 30))
	mock.ExpectQuery(`SELECT (.+) FROM "users" (.+)FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u1", "free", nil, "", false))
	mock.ExpectExec(`UPDATE "users"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "payments"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got := Refresh(context.Background(), p, time.Now())

	assert.Equal(t, StatusApproved, got.Status)
	assert.NotNil(t, got.ApprovedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshKeepsLocalStatusOnProviderError(t *testing.T) {
	setupMockDB(t)
	withFetcher(t, ProviderMercadoPago, &stubFetcher{err: errors.New("timeout")})

	p := Payment{ID: "p1", Provider: ProviderMercadoPago, ExternalID: "mp-1", Status: StatusPending}

	assert.Equal(t, StatusPending, Refresh(context.Background(), p, time.Now()).Status)
}

func TestRefreshWithoutExternalID(t *testing.T) {
	fetcher := &stubFetcher{status: StatusApproved}
	withFetcher(t, ProviderMercadoPago, fetcher)

	p := Payment{ID: "p1", Provider: ProviderMercadoPago, Method: MethodCard, Status: StatusPending}

	assert.Equal(t, StatusPending, Refresh(context.Background(), p, time.Now()).Status)
	assert.Equal(t, 0, fetcher.calls)
}

func newPaymentRouter(userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/payments/:id", func(c *gin.Context) {
		c.Set("user_id", userID)
		GetPayment(c)
	})
	return r
}

func TestGetPayment(t *testing.T) {
	t.Run("Other user's payment", func(t *testing.T) {
		mock := setupMockDB(t)
		mock.ExpectQuery(`SELECT (.+) FROM "payments" WHERE id = (.+) AND user_id = (.+)`).
			WithArgs("p1", "intruder", 1).
			WillReturnRows(sqlmock.NewRows(paymentColumns))

		w := httptest.NewRecorder()
		newPaymentRouter("intruder").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/payments/p1", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Owner sees settled payment", func(t *testing.T) {
		mock := setupMockDB(t)
		mock.ExpectQuery(`SELECT (.+) FROM "payments" WHERE id = (.+) AND user_id = (.+)`).
			WithArgs("p1", "u1", 1).
			WillReturnRows(sqlmock.NewRows(paymentColumns).
				AddRow("p1", "u1", "mercadopago", "pix", "mp-1", "approved", 1990, "BRL", 30))

		w := httptest.NewRecorder()
		newPaymentRouter("u1").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/payments/p1", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"approved"`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
