package giftcode

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/textocerto/TextoCerto-Back/internal/database"
	"github.com/textocerto/TextoCerto-Back/internal/user"
)

var (
	ErrCodeNotFound    = errors.New("código não encontrado")
	ErrCodeExpired     = errors.New("código expirado")
	ErrCodeDisabled    = errors.New("código desativado")
	ErrCodeExhausted   = errors.New("código esgotado")
	ErrAlreadyRedeemed = errors.New("código já resgatado por este usuário")
)

// Redemption é o resultado de um resgate: o código e o usuário já atualizado
type Redemption struct {
	Code GiftCode
	User user.User
}

// Redeem resgata o código para o usuário e estende o plano pro
func Redeem(userID, input string, now time.Time) (Redemption, error) {
	code := Normalize(input)
	if !Valid(code) {
		return Redemption{}, ErrCodeNotFound
	}

	var gc GiftCode
	var u user.User
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("code = ?", code).First(&gc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCodeNotFound
			}
			return err
		}

		if err := check(gc, now); err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&GiftRedemption{}).Where("code_id = ? AND user_id = ?", gc.ID, userID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyRedeemed
		}

		if err := tx.Create(&GiftRedemption{
			ID:        uuid.New().String(),
			CodeID:    gc.ID,
			UserID:    userID,
			CreatedAt: now,
		}).Error; err != nil {
			return err
		}

		if err := tx.Model(&GiftCode{}).Where("id = ?", gc.ID).
			Update("redemptions", gorm.Expr("redemptions + 1")).Error; err != nil {
			return err
		}
		gc.Redemptions++

		var err error
		u, err = user.ExtendPro(tx, userID, gc.PlanDays, now)
		return err
	})
	return Redemption{Code: gc, User: u}, err
}

func check(gc GiftCode, now time.Time) error {
	switch {
	case gc.Disabled:
		return ErrCodeDisabled
	case gc.ExpiresAt != nil && !gc.ExpiresAt.After(now):
		return ErrCodeExpired
	case gc.MaxRedemptions > 0 && gc.Redemptions >= gc.MaxRedemptions:
		return ErrCodeExhausted
	}
	return nil
}
