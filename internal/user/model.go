package user

import "time"

type Plan string

const (
	PlanFree  Plan = "free"
	PlanPro   Plan = "pro"
	PlanAdmin Plan = "admin"
)

func (p Plan) IsValid() bool {
	switch p {
	case PlanFree, PlanPro, PlanAdmin:
		return true
	default:
		return false
	}
}

type User struct {
	ID                   string `gorm:"primaryKey"` // UUID vindo de auth.users
	CreatedAt            time.Time
	Email                string
	Name                 string
	Plan                 Plan
	ProExpiresAt         *time.Time
	StripeCustomerID     string
	StripeSubscriptionID string
	IsAdmin              bool
}

// EffectivePlan devolve o plano realmente em vigor em now.
// O pro vale enquanto houver assinatura Stripe ou período comprado no futuro;
// um pro sem assinatura e sem data de término é uma concessão permanente.
func (u User) EffectivePlan(now time.Time) Plan {
	if u.IsAdmin || u.Plan == PlanAdmin {
		return PlanAdmin
	}
	if u.Plan != PlanPro {
		return PlanFree
	}
	switch {
	case u.StripeSubscriptionID != "":
		return PlanPro
	case u.ProExpiresAt == nil:
		return PlanPro
	case u.ProExpiresAt.After(now):
		return PlanPro
	}
	return PlanFree
}

// permanentPro indica um pro concedido sem data de término e fora do Stripe
func (u User) permanentPro() bool {
	return u.Plan == PlanPro && u.ProExpiresAt == nil && u.StripeSubscriptionID == ""
}
