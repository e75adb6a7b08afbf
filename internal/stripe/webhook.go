package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/textocerto/TextoCerto-Back/internal/database"
	"github.com/textocerto/TextoCerto-Back/internal/logs"
	"github.com/textocerto/TextoCerto-Back/internal/payment"
	"github.com/textocerto/TextoCerto-Back/internal/user"
)

var handledEvents = map[stripe.EventType]bool{
	"checkout.session.completed":    true,
	"customer.subscription.updated": true,
	"customer.subscription.deleted": true,
	"invoice.payment_failed":        true,
}

func HandleStripeWebhook(c *gin.Context) {
	const MaxBodyBytes = int64(65536)
	route := c.FullPath()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Falha ao ler o corpo"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(body, c.GetHeader("Stripe-Signature"), settings.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Assinatura Stripe inválida"})
		logs.LogJSON("WARN", "Stripe webhook rejected", map[string]interface{}{
			"error": err.Error(),
			"route": route,
		})
		return
	}

	if !handledEvents[event.Type] {
		c.JSON(http.StatusOK, gin.H{"received": true, "ignored": true})
		return
	}

	first, err := payment.MarkEventProcessed(payment.ProviderStripe, event.ID)
	if err != nil {
		logs.LogJSON("ERROR", "Error recording Stripe event", map[string]interface{}{
			"error":   err.Error(),
			"route":   route,
			"eventID": event.ID,
		})
	}
	if err == nil && !first {
		c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
		return
	}

	if err := dispatch(c.Request.Context(), event); err != nil {
		logs.LogJSON("ERROR", "Stripe webhook processing failed", map[string]interface{}{
			"error":     err.Error(),
			"route":     route,
			"eventID":   event.ID,
			"eventType": event.Type,
		})
		// reenvio manual pelo painel precisa passar pela deduplicação
		if first {
			if ferr := payment.ForgetEvent(payment.ProviderStripe, event.ID); ferr != nil {
				logs.LogJSON("ERROR", "Error releasing Stripe event", map[string]interface{}{
					"error":   ferr.Error(),
					"eventID": event.ID,
				})
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func dispatch(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var s stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return err
		}
		return handleCheckoutSessionCompleted(ctx, s)

	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return err
		}
		plan := planForSubscription(sub.Status)
		if event.Type == "customer.subscription.deleted" {
			plan = user.PlanFree
		}
		return applySubscription(sub, plan)

	case "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return err
		}
		logs.LogJSON("WARN", "Stripe invoice payment failed", map[string]interface{}{
			"invoiceID":    inv.ID,
			"customerID":   customerID(inv.Customer),
			"attemptCount": inv.AttemptCount,
			"amountDue":    inv.AmountDue,
		})
	}
	return nil
}

// planForSubscription decide o plano a partir do status da assinatura
func planForSubscription(status stripe.SubscriptionStatus) user.Plan {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return user.PlanPro
	default:
		return user.PlanFree
	}
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

func applySubscription(sub stripe.Subscription, plan user.Plan) error {
	subscriptionID := sub.ID
	if plan == user.PlanFree {
		subscriptionID = ""
	}
	rows, err := user.SetPlanByStripeCustomer(customerID(sub.Customer), plan, subscriptionID)
	if err != nil {
		return err
	}
	logs.LogJSON("INFO", "Stripe subscription applied", map[string]interface{}{
		"customerID":     customerID(sub.Customer),
		"subscriptionID": sub.ID,
		"status":         sub.Status,
		"plan":           plan,
		"rows":           rows,
	})
	return nil
}

func handleCheckoutSessionCompleted(ctx context.Context, s stripe.CheckoutSession) error {
	userID := s.ClientReferenceID
	if userID == "" {
		userID = s.Metadata["user_id"]
	}
	if userID == "" {
		return errors.New("client_reference_id ausente")
	}

	subscriptionID := ""
	if s.Subscription != nil {
		subscriptionID = s.Subscription.ID
	}

	updates := map[string]interface{}{
		"plan":                   user.PlanPro,
		"stripe_customer_id":     customerID(s.Customer),
		"stripe_subscription_id": subscriptionID,
	}
	if err := database.DB.Model(&user.User{}).
		Where("id = ? AND plan <> ? AND is_admin = false", userID, user.PlanAdmin).
		Updates(updates).Error; err != nil {
		return err
	}

	// uma entrega anterior pode ter criado a linha e falhado antes de aprová-la
	p, err := payment.GetByExternalID(payment.ProviderStripe, s.ID)
	switch {
	case err == nil && p.Status != payment.StatusPending:
		return nil
	case errors.Is(err, payment.ErrPaymentNotFound):
		p = payment.NewPending(userID, payment.ProviderStripe, payment.MethodCard, s.AmountTotal, 0)
		p.ExternalID = s.ID
		if s.Currency != "" {
			p.Currency = strings.ToUpper(string(s.Currency))
		}
		if err := payment.Create(&p); err != nil {
			return err
		}
	case err != nil:
		return err
	}

	_, err = payment.Reconcile(ctx, p.ID, payment.StatusApproved, s.ID)
	return err
}
