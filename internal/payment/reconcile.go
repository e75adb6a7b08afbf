package payment

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/textocerto/TextoCerto-Back/internal/analytics"
	"github.com/textocerto/TextoCerto-Back/internal/database"
	"github.com/textocerto/TextoCerto-Back/internal/logs"
	"github.com/textocerto/TextoCerto-Back/internal/user"
)

var ErrPaymentNotFound = errors.New("pagamento não encontrado")

// Outcome descreve o efeito de uma reconciliação
type Outcome struct {
	Payment      Payment
	Changed      bool
	ProExpiresAt *time.Time
}

// Reconcile aplica um novo status ao pagamento e os efeitos no plano do
// usuário, tudo na mesma transação. Chamadas repetidas com o mesmo status
// não têm efeito.
func Reconcile(ctx context.Context, paymentID string, to Status, externalID string) (Outcome, error) {
	var out Outcome
	now := time.Now()

	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p Payment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}

		changed, err := Transition(p.Status, to)
		if err != nil && cardRetryApproved(p, to, externalID) {
			changed, err = true, nil
		}
		if err != nil {
			out.Payment = p
			return err
		}
		if !changed {
			out.Payment = p
			return nil
		}

		updates := map[string]interface{}{"status": to, "updated_at": now}
		if externalID != "" && externalID != p.ExternalID {
			updates["external_id"] = externalID
			p.ExternalID = externalID
		}

		switch to {
		case StatusApproved:
			updates["approved_at"] = now
			p.ApprovedAt = &now
			if p.PlanDays > 0 {
				u, err := user.ExtendPro(tx, p.UserID, p.PlanDays, now)
				if err != nil {
					return err
				}
				out.ProExpiresAt = u.ProExpiresAt
			}
		case StatusRefunded:
			if err := user.RevokePro(tx, p.UserID, p.PlanDays, now); err != nil {
				return err
			}
		}

		if err := tx.Model(&Payment{}).Where("id = ?", p.ID).Updates(updates).Error; err != nil {
			return err
		}

		p.Status = to
		p.UpdatedAt = now
		out.Payment = p
		out.Changed = true
		return nil
	})
	if err != nil {
		return out, err
	}

	if out.Changed {
		logs.LogJSON("INFO", "Payment reconciled", map[string]interface{}{
			"paymentID": out.Payment.ID,
			"userID":    out.Payment.UserID,
			"provider":  out.Payment.Provider,
			"status":    to,
		})
		if to == StatusApproved {
			analytics.Default.TrackPurchase(ctx, analytics.Purchase{
				UserID:        out.Payment.UserID,
				TransactionID: out.Payment.ID,
				Value:         out.Payment.Amount(),
				Currency:      out.Payment.Currency,
				Provider:      string(out.Payment.Provider),
				Method:        string(out.Payment.Method),
			})
		}
	}
	return out, nil
}

// MarkEventProcessed registra o id do evento. Devolve false se ele já
// tinha sido visto.
func MarkEventProcessed(provider Provider, eventID string) (bool, error) {
	res := database.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&ProcessedEvent{
		Provider:  provider,
		EventID:   eventID,
		CreatedAt: time.Now(),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ForgetEvent desfaz MarkEventProcessed para que o provedor possa reenviar
// um evento cujo processamento falhou.
func ForgetEvent(provider Provider, eventID string) error {
	return database.DB.Where("provider = ? AND event_id = ?", provider, eventID).Delete(&ProcessedEvent{}).Error
}
