package user

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/textocerto/TextoCerto-Back/internal/database"
)

// Limits reúne o que cada plano permite
type Limits struct {
	MaxCharacters int
	DailyRequests int // 0 = ilimitado
	RewriteStyles []string
}

var allStyles = []string{"formal", "informal", "academico", "criativo", "conciso"}

func LimitsFor(plan Plan) Limits {
	switch plan {
	case PlanPro, PlanAdmin:
		return Limits{MaxCharacters: 20000, DailyRequests: 0, RewriteStyles: allStyles}
	default:
		return Limits{MaxCharacters: 1500, DailyRequests: 10, RewriteStyles: []string{"formal", "informal"}}
	}
}

func (l Limits) AllowsStyle(style string) bool {
	for _, s := range l.RewriteStyles {
		if s == style {
			return true
		}
	}
	return false
}

func IsKnownStyle(style string) bool {
	for _, s := range allStyles {
		if s == style {
			return true
		}
	}
	return false
}

var ErrUserNotFound = errors.New("usuário não encontrado")

func lockUser(tx *gorm.DB, userID string) (User, error) {
	var u User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return u, ErrUserNotFound
		}
		return u, err
	}
	return u, nil
}

// ExtendPro soma days ao período pro comprado pelo usuário dentro da
// transação tx e devolve o usuário atualizado. A contagem parte da expiração
// atual quando ela ainda está no futuro. O período comprado corre em paralelo
// a uma assinatura Stripe, que continua valendo sozinha; um pro permanente
// não ganha data de término.
func ExtendPro(tx *gorm.DB, userID string, days int, now time.Time) (User, error) {
	u, err := lockUser(tx, userID)
	if err != nil {
		return u, err
	}
	if u.permanentPro() {
		return u, nil
	}

	expires := NextExpiry(u.ProExpiresAt, days, now)
	updates := map[string]interface{}{"pro_expires_at": expires}
	if u.EffectivePlan(now) != PlanAdmin {
		updates["plan"] = PlanPro
	}
	if err := tx.Model(&User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		return u, err
	}
	u.ProExpiresAt = &expires
	if plan, ok := updates["plan"]; ok {
		u.Plan = plan.(Plan)
	}
	return u, nil
}

func NextExpiry(current *time.Time, days int, now time.Time) time.Time {
	base := now
	if current != nil && current.After(now) {
		base = *current
	}
	return base.AddDate(0, 0, days)
}

// RevokePro desconta days do período comprado (reembolso). O usuário só volta
// ao free quando não sobra período futuro nem assinatura Stripe. Admins e
// concessões permanentes não são afetados.
func RevokePro(tx *gorm.DB, userID string, days int, now time.Time) error {
	u, err := lockUser(tx, userID)
	if err != nil {
		return err
	}
	if u.EffectivePlan(now) == PlanAdmin || u.permanentPro() {
		return nil
	}

	var expires *time.Time
	if u.ProExpiresAt != nil {
		e := u.ProExpiresAt.AddDate(0, 0, -days)
		if e.After(now) {
			expires = &e
		}
	}
	plan := PlanFree
	if u.StripeSubscriptionID != "" || expires != nil {
		plan = PlanPro
	}
	return tx.Model(&User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{"plan": plan, "pro_expires_at": expires}).Error
}

// SetPlanByStripeCustomer aplica o plano vindo de um evento Stripe. O fim
// da assinatura (plan free) só rebaixa o usuário se não restar período
// comprado por outro meio.
func SetPlanByStripeCustomer(customerID string, plan Plan, subscriptionID string) (int64, error) {
	if customerID == "" {
		return 0, errors.New("stripe customer id ausente")
	}
	updates := map[string]interface{}{
		"plan":                   plan,
		"stripe_subscription_id": subscriptionID,
	}
	if plan == PlanFree {
		updates["stripe_subscription_id"] = ""
		updates["plan"] = gorm.Expr("CASE WHEN pro_expires_at > ? THEN ? ELSE ? END", time.Now(), PlanPro, PlanFree)
	}
	res := database.DB.Model(&User{}).
		Where("stripe_customer_id = ? AND plan <> ? AND is_admin = false", customerID, PlanAdmin).
		Updates(updates)
	return res.RowsAffected, res.Error
}
