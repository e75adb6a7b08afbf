package payment

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/textocerto/TextoCerto-Back/internal/database"
)

// NewPending prepara um pagamento pendente; o id é usado como
// external_reference junto ao provedor.
func NewPending(userID string, provider Provider, method Method, amountCents int64, planDays int) Payment {
	now := time.Now()
	return Payment{
		ID:          uuid.New().String(),
		CreatedAt:   now,
		UpdatedAt:   now,
		UserID:      userID,
		Provider:    provider,
		Method:      method,
		Status:      StatusPending,
		AmountCents: amountCents,
		Currency:    "BRL",
		PlanDays:    planDays,
	}
}

func Create(p *Payment) error {
	return database.DB.Create(p).Error
}

func GetByID(id string) (Payment, error) {
	var p Payment
	if err := database.DB.First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Payment{}, ErrPaymentNotFound
		}
		return Payment{}, err
	}
	return p, nil
}

func GetByExternalID(provider Provider, externalID string) (Payment, error) {
	var p Payment
	err := database.DB.Where("provider = ? AND external_id = ?", provider, externalID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Payment{}, ErrPaymentNotFound
	}
	return p, err
}

// SetExternalID grava o id do provedor logo após a criação da cobrança
func SetExternalID(id, externalID string, expiresAt *time.Time) error {
	updates := map[string]interface{}{"external_id": externalID, "updated_at": time.Now()}
	if expiresAt != nil {
		updates["expires_at"] = *expiresAt
	}
	return database.DB.Model(&Payment{}).Where("id = ?", id).Updates(updates).Error
}
