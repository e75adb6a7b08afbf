package stripe

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v78/subscription"

	"github.com/textocerto/TextoCerto-Back/internal/logs"
	"github.com/textocerto/TextoCerto-Back/internal/user"
)

var timeNow = time.Now

// CancelSubscription POST /api/billing/stripe/cancel
func CancelSubscription(c *gin.Context) {
	route := c.FullPath()
	userID := c.GetString("user_id")

	u, err := user.GetByID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Usuário não encontrado"})
		return
	}
	if u.StripeSubscriptionID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Assinatura não encontrada"})
		return
	}

	if _, err := subscription.Cancel(u.StripeSubscriptionID, nil); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Erro ao cancelar a assinatura no Stripe"})
		logs.LogJSON("ERROR", "Stripe cancellation failed", map[string]interface{}{
			"error":          err.Error(),
			"route":          route,
			"userID":         userID,
			"subscriptionID": u.StripeSubscriptionID,
		})
		return
	}

	if _, err := user.SetPlanByStripeCustomer(u.StripeCustomerID, user.PlanFree, ""); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao atualizar o plano"})
		logs.LogJSON("ERROR", "Local downgrade after cancellation failed", map[string]interface{}{
			"error":  err.Error(),
			"route":  route,
			"userID": userID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Assinatura cancelada"})
	logs.LogJSON("INFO", "Stripe subscription cancelled", map[string]interface{}{
		"route":          route,
		"userID":         userID,
		"subscriptionID": u.StripeSubscriptionID,
	})
}
