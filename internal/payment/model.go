package payment

import "time"

type Provider string

const (
	ProviderStripe      Provider = "stripe"
	ProviderMercadoPago Provider = "mercadopago"
)

type Method string

const (
	MethodPix  Method = "pix"
	MethodCard Method = "card"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
	StatusExpired   Status = "expired"
)

// Payment é o registro local de uma cobrança, qualquer que seja o provedor
type Payment struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	UserID      string     `json:"user_id" gorm:"index"`
	Provider    Provider   `json:"provider"`
	Method      Method     `json:"method"`
	ExternalID  string     `json:"external_id,omitempty" gorm:"index"`
	Status      Status     `json:"status"`
	AmountCents int64      `json:"amount_cents"`
	Currency    string     `json:"currency"`
	PlanDays    int        `json:"plan_days"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
}

// ProcessedEvent guarda os ids de webhook já tratados
type ProcessedEvent struct {
	Provider  Provider `gorm:"primaryKey"`
	EventID   string   `gorm:"primaryKey"`
	CreatedAt time.Time
}

// Amount devolve o valor em reais
func (p Payment) Amount() float64 {
	return float64(p.AmountCents) / 100
}

// Stale indica um PIX pendente que passou da validade
func (p Payment) Stale(now time.Time) bool {
	return p.Status == StatusPending && p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}
