package giftcode

import "time"

type GiftCode struct {
	ID             string     `json:"id" gorm:"primaryKey"`
	CreatedAt      time.Time  `json:"created_at"`
	Code           string     `json:"code" gorm:"uniqueIndex"`
	PlanDays       int        `json:"plan_days"`
	MaxRedemptions int        `json:"max_redemptions"`
	Redemptions    int        `json:"redemptions"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	CreatedBy      string     `json:"created_by"`
	Disabled       bool       `json:"disabled"`
}

// GiftRedemption é única por (código, usuário)
type GiftRedemption struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	CodeID    string    `json:"code_id" gorm:"uniqueIndex:idx_code_user"`
	UserID    string    `json:"user_id" gorm:"uniqueIndex:idx_code_user"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateInput struct {
	Quantity       int        `json:"quantity"`
	PlanDays       int        `json:"plan_days" binding:"required"`
	MaxRedemptions int        `json:"max_redemptions"`
	ExpiresAt      *time.Time `json:"expires_at"`
}

type RedeemInput struct {
	Code string `json:"code" binding:"required"`
}
