package stripe

import (
	"bytes"
	"database/sql/driver"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/textocerto/TextoCerto-Back/internal/database"
	"github.com/textocerto/TextoCerto-Back/internal/user"
)

const testWebhookSecret = "whsec_test_secret"

func newWebhookRouter(t *testing.T) *gin.Engine {
	t.Helper()
	previous := settings
	settings = Settings{WebhookSecret: testWebhookSecret}
	t.Cleanup(func() { settings = previous })

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/webhooks/stripe", HandleStripeWebhook)
	return r
}

func setupMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 mockDB,
		DriverName:           "postgres",
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	assert.NoError(t, err)

	originalDB := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = originalDB })

	return mock
}

func signedEvent(payload string) *webhook.SignedPayload {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(payload),
		Secret:  testWebhookSecret,
	})
}

const checkoutCompleted = `{"id":"evt_10","object":"event","type":"checkout.session.completed","api_version":"2024-04-10",
"data":{"object":{"id":"cs_1","object":"checkout.session","client_reference_id":"u1","customer":"cus_1",
"subscription":"sub_1","amount_total":1990,"currency":"brl"}}}`

var paymentColumns = []string{"id", "user_id", "provider", "method", "external_id", "status", "amount_cents", "currency", "plan_days"}

func expectEventRecorded(mock sqlmock.Sqlmock, rows int64) {
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "processed_events"`).WillReturnResult(sqlmock.NewResult(0, rows))
	mock.ExpectCommit()
}

func expectSubscriberUpdate(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users" SET "plan"=\$1,"stripe_customer_id"=\$2,"stripe_subscription_id"=\$3 WHERE`).
		WithArgs("pro", "cus_1", "sub_1", "u1", "admin").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
}

func expectApproval(mock sqlmock.Sqlmock, paymentID string) {
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "payments" (.+)FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(paymentColumns).
			AddRow(paymentID, "u1", "stripe", "card", "cs_1", "pending", 1990, "BRL", 0))
	mock.ExpectExec(`UPDATE "payments"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
}

func sendEvent(r *gin.Engine, payload []byte, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", header)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookInvalidSignature(t *testing.T) {
	r := newWebhookRouter(t)

	w := sendEvent(r, []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed"}`), "t=1,v1=bad")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookIgnoresUnhandledEvents(t *testing.T) {
	r := newWebhookRouter(t)

	payload := []byte(`{"id":"evt_2","object":"event","type":"customer.created","api_version":"2024-04-10","data":{"object":{}}}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  testWebhookSecret,
	})

	w := sendEvent(r, signed.Payload, signed.Header)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ignored":true`)
}

func TestPlanForSubscription(t *testing.T) {
	tests := map[stripe.SubscriptionStatus]user.Plan{
		stripe.SubscriptionStatusActive:            user.PlanPro,
		stripe.SubscriptionStatusTrialing:          user.PlanPro,
		stripe.SubscriptionStatusPastDue:           user.PlanFree,
		stripe.SubscriptionStatusCanceled:          user.PlanFree,
		stripe.SubscriptionStatusUnpaid:            user.PlanFree,
		stripe.SubscriptionStatusIncompleteExpired: user.PlanFree,
	}
	for status, want := range tests {
		assert.Equal(t, want, planForSubscription(status), string(status))
	}
}

func TestCheckoutDisabledWithoutKeys(t *testing.T) {
	previous := settings
	settings = Settings{}
	t.Cleanup(func() { settings = previous })

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/checkout", CreateCheckoutSession)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/checkout", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestWebhookCheckoutCompletedActivatesPro(t *testing.T) {
	r := newWebhookRouter(t)
	mock := setupMockDB(t)

	expectEventRecorded(mock, 1)
	expectSubscriberUpdate(mock)
	mock.ExpectQuery(`SELECT (.+) FROM "payments" WHERE provider = (.+) AND external_id = (.+)`).
		WillReturnRows(sqlmock.NewRows(paymentColumns))
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "payments"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	expectApproval(mock, "p-new")

	signed := signedEvent(checkoutCompleted)
	w := sendEvent(r, signed.Payload, signed.Header)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookCheckoutRedeliveryApprovesPendingRow(t *testing.T) {
	r := newWebhookRouter(t)
	mock := setupMockDB(t)

	expectEventRecorded(mock, 1)
	expectSubscriberUpdate(mock)
	mock.ExpectQuery(`SELECT (.+) FROM "payments" WHERE provider = (.+) AND external_id = (.+)`).
		WillReturnRows(sqlmock.NewRows(paymentColumns).
			AddRow("p-1", "u1", "stripe", "card", "cs_1", "pending", 1990, "BRL", 0))
	expectApproval(mock, "p-1")

	signed := signedEvent(checkoutCompleted)
	w := sendEvent(r, signed.Payload, signed.Header)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookCheckoutAlreadyApprovedIsNoop(t *testing.T) {
	r := newWebhookRouter(t)
	mock := setupMockDB(t)

	expectEventRecorded(mock, 1)
	expectSubscriberUpdate(mock)
	mock.ExpectQuery(`SELECT (.+) FROM "payments" WHERE provider = (.+) AND external_id = (.+)`).
		WillReturnRows(sqlmock.NewRows(paymentColumns).
			AddRow("p-1", "u1", "stripe", "card", "cs_1", "approved", 1990, "BRL", 0))

	signed := signedEvent(checkoutCompleted)
	w := sendEvent(r, signed.Payload, signed.Header)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookFailureReleasesEvent(t *testing.T) {
	r := newWebhookRouter(t)
	mock := setupMockDB(t)

	expectEventRecorded(mock, 1)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users"`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "processed_events"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	signed := signedEvent(checkoutCompleted)
	w := sendEvent(r, signed.Payload, signed.Header)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookDuplicateEventSkipped(t *testing.T) {
	r := newWebhookRouter(t)
	mock := setupMockDB(t)

	expectEventRecorded(mock, 0)

	signed := signedEvent(checkoutCompleted)
	w := sendEvent(r, signed.Payload, signed.Header)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"duplicate":true`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookSubscriptionEvents(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		update  string
		args    []driver.Value
	}{
		{
			name: "Updated and active",
			payload: `{"id":"evt_20","object":"event","type":"customer.subscription.updated","api_version":"2024-04-10",
"data":{"object":{"id":"sub_1","object":"subscription","customer":"cus_1","status":"active"}}}`,
			update: `UPDATE "users" SET "plan"=\$1,"stripe_subscription_id"=\$2 WHERE`,
			args:   []driver.Value{"pro", "sub_1", "cus_1", "admin"},
		},
		{
			name: "Updated to past due",
			payload: `{"id":"evt_21","object":"event","type":"customer.subscription.updated","api_version":"2024-04-10",
"data":{"object":{"id":"sub_1","object":"subscription","customer":"cus_1","status":"past_due"}}}`,
			update: `UPDATE "users" SET "plan"=CASE WHEN pro_expires_at > (.+) END,"stripe_subscription_id"=`,
		},
		{
			name: "Deleted keeps bought days",
			payload: `{"id":"evt_22","object":"event","type":"customer.subscription.deleted","api_version":"2024-04-10",
"data":{"object":{"id":"sub_1","object":"subscription","customer":"cus_1","status":"canceled"}}}`,
			update: `UPDATE "users" SET "plan"=CASE WHEN pro_expires_at > (.+) END,"stripe_subscription_id"=`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newWebhookRouter(t)
			mock := setupMockDB(t)

			expectEventRecorded(mock, 1)
			mock.ExpectBegin()
			exec := mock.ExpectExec(tt.update)
			if tt.args != nil {
				exec = exec.WithArgs(tt.args...)
			}
			exec.WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectCommit()

			signed := signedEvent(tt.payload)
			w := sendEvent(r, signed.Payload, signed.Header)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
