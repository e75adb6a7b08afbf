package stripe

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v78"
	portalsession "github.com/stripe/stripe-go/v78/billingportal/session"
	"github.com/stripe/stripe-go/v78/checkout/session"

	"github.com/textocerto/TextoCerto-Back/internal/logs"
	"github.com/textocerto/TextoCerto-Back/internal/user"
)

// CreateCheckoutSession POST /api/billing/stripe/checkout
func CreateCheckoutSession(c *gin.Context) {
	route := c.FullPath()
	userID := c.GetString("user_id")

	if !enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Pagamento com cartão indisponível"})
		return
	}

	u, err := user.GetByID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Usuário não encontrado"})
		return
	}
	if u.EffectivePlan(timeNow()) == user.PlanAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Administradores já têm acesso completo"})
		return
	}
	if u.StripeSubscriptionID != "" && u.Plan == user.PlanPro {
		c.JSON(http.StatusConflict, gin.H{"error": "Você já possui uma assinatura ativa"})
		return
	}

	customerID, err := ensureCustomer(u)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao criar o cliente Stripe"})
		logs.LogJSON("ERROR", "Stripe customer creation failed", map[string]interface{}{
			"error":  err.Error(),
			"route":  route,
			"userID": userID,
		})
		return
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(customerID),
		ClientReferenceID: stripe.String(userID),
		SuccessURL:        stripe.String(fmt.Sprintf("%s/planos?checkout=success", settings.DomainURL)),
		CancelURL:         stripe.String(fmt.Sprintf("%s/planos?checkout=cancel", settings.DomainURL)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(settings.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		AllowPromotionCodes: stripe.Bool(true),
		Metadata: map[string]string{
			"user_id": userID,
		},
	}

	created, err := session.New(params)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Erro ao criar a sessão de pagamento"})
		logs.LogJSON("ERROR", "Stripe checkout session failed", map[string]interface{}{
			"error":  err.Error(),
			"route":  route,
			"userID": userID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": created.URL, "session_id": created.ID})
	logs.LogJSON("INFO", "Stripe checkout session created", map[string]interface{}{
		"route":     route,
		"userID":    userID,
		"sessionID": created.ID,
	})
}

// CreatePortalSession POST /api/billing/stripe/portal
func CreatePortalSession(c *gin.Context) {
	route := c.FullPath()
	userID := c.GetString("user_id")

	if !enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Portal de assinatura indisponível"})
		return
	}

	u, err := user.GetByID(userID)
	if err != nil || u.StripeCustomerID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Nenhuma assinatura Stripe encontrada"})
		return
	}

	ps, err := portalsession.New(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(u.StripeCustomerID),
		ReturnURL: stripe.String(settings.DomainURL + "/conta"),
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Erro ao abrir o portal de assinatura"})
		logs.LogJSON("ERROR", "Stripe portal session failed", map[string]interface{}{
			"error":  err.Error(),
			"route":  route,
			"userID": userID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": ps.URL})
}
