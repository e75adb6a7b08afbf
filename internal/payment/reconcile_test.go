package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/textocerto/TextoCerto-Back/internal/database"
)

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

var paymentColumns = []string{"id", "user_id", "provider", "method", "external_id", "status", "amount_cents", "currency", "plan_days"}

func TestReconcileApproveExtendsPro(t *testing.T) {
	mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "payments" (.+)FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(paymentColumns).
			AddRow("p1", "u1", "mercadopago", "pix", "", "pending", 1990, "BRL", 30))
	mock.ExpectQuery(`SELECT (.+) FROM "users" (.+)FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u1", "free", nil, "", false))
	mock.ExpectExec(`UPDATE "users"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "payments"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	out, err := Reconcile(context.Background(), "p1", StatusApproved, "mp-123")

	assert.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, StatusApproved, out.Payment.Status)
	assert.Equal(t, "mp-123", out.Payment.ExternalID)
	if assert.NotNil(t, out.ProExpiresAt) {
		assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), *out.ProExpiresAt, time.Minute)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileReplayIsNoop(t *testing.T) {
	mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "payments"`).
		WillReturnRows(sqlmock.NewRows(paymentColumns).
			AddRow("p1", "u1", "mercadopago", "pix", "mp-123", "approved", 1990, "BRL", 30))
	mock.ExpectCommit()

	out, err := Reconcile(context.Background(), "p1", StatusApproved, "mp-123")

	assert.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Nil(t, out.ProExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileInvalidTransition(t *testing.T) {
	mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "payments"`).
		WillReturnRows(sqlmock.NewRows(paymentColumns).
			AddRow("p1", "u1", "mercadopago", "pix", "mp-123", "expired", 1990, "BRL", 30))
	mock.ExpectRollback()

	_, err := Reconcile(context.Background(), "p1", StatusApproved, "")

	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.NoError(t, mock.ExpectationsWereMet())
}

var userColumns = []string{"id", "plan", "pro_expires_at", "stripe_subscription_id", "is_admin"}

func TestReconcileRefund(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name         string
		expiresAt    interface{}
		subscription string
		expectedPlan string
	}{
		{name: "No other entitlement", expiresAt: now.AddDate(0, 0, 30), expectedPlan: "free"},
		{name: "Stripe subscription still active", expiresAt: now.AddDate(0, 0, 10), subscription: "sub_1", expectedPlan: "pro"},
		{name: "Gift days remain", expiresAt: now.AddDate(0, 0, 45), expectedPlan: "pro"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := setupMockDB(t)

			mock.ExpectBegin()
			mock.ExpectQuery(`SELECT (.+) FROM "payments"`).
				WillReturnRows(sqlmock.NewRows(paymentColumns).
					AddRow("p1", "u1", "mercadopago", "pix", "mp-9", "approved", 1990, "BRL", 30))
			mock.ExpectQuery(`SELECT (.+) FROM "users" (.+)FOR UPDATE`).
				WillReturnRows(sqlmock.NewRows(userColumns).
					AddRow("u1", "pro", tt.expiresAt, tt.subscription, false))
			mock.ExpectExec(`UPDATE "users"`).
				WithArgs(tt.expectedPlan, sqlmock.AnyArg(), "u1").
				WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectExec(`UPDATE "payments"`).WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectCommit()

			out, err := Reconcile(context.Background(), "p1", StatusRefunded, "")

			assert.NoError(t, err)
			assert.True(t, out.Changed)
			assert.Equal(t, StatusRefunded, out.Payment.Status)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestReconcileCardRetryAfterRejection(t *testing.T) {
	mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "payments"`).
		WillReturnRows(sqlmock.NewRows(paymentColumns).
			AddRow("p1", "u1", "mercadopago", "card", "mp-1", "rejected", 1990, "BRL", 30))
	mock.ExpectQuery(`SELECT (.+) FROM "users" (.+)FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u1", "free", nil, "", false))
	mock.ExpectExec(`UPDATE "users"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "payments"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	out, err := Reconcile(context.Background(), "p1", StatusApproved, "mp-2")

	assert.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, StatusApproved, out.Payment.Status)
	assert.Equal(t, "mp-2", out.Payment.ExternalID)
	assert.NotNil(t, out.ProExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileRejectedSameAttemptStaysRejected(t *testing.T) {
	mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "payments"`).
		WillReturnRows(sqlmock.NewRows(paymentColumns).
			AddRow("p1", "u1", "mercadopago", "card", "mp-1", "rejected", 1990, "BRL", 30))
	mock.ExpectRollback()

	_, err := Reconcile(context.Background(), "p1", StatusApproved, "mp-1")

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileNotFound(t *testing.T) {
	mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "payments"`).WillReturnRows(sqlmock.NewRows(paymentColumns))
	mock.ExpectRollback()

	_, err := Reconcile(context.Background(), "missing", StatusApproved, "")

	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestMarkEventProcessed(t *testing.T) {
	mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "processed_events"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	first, err := MarkEventProcessed(ProviderStripe, "evt_1")
	assert.NoError(t, err)
	assert.True(t, first)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "processed_events"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	again, err := MarkEventProcessed(ProviderStripe, "evt_1")
	assert.NoError(t, err)
	assert.False(t, again)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestForgetEventAllowsRedelivery(t *testing.T) {
	mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "processed_events"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, ForgetEvent(ProviderMercadoPago, "req-9"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStale(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.True(t, Payment{Status: StatusPending, ExpiresAt: &past}.Stale(now))
	assert.False(t, Payment{Status: StatusPending, ExpiresAt: &future}.Stale(now))
	assert.False(t, Payment{Status: StatusApproved, ExpiresAt: &past}.Stale(now))
	assert.False(t, Payment{Status: StatusPending}.Stale(now))
}
