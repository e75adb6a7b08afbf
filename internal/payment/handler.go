package payment

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/textocerto/TextoCerto-Back/internal/database"
	"github.com/textocerto/TextoCerto-Back/internal/logs"
)

// StatusFetcher consulta o status atual de uma cobrança no provedor
type StatusFetcher interface {
	FetchStatus(ctx context.Context, externalID string) (Status, error)
}

var fetchers = map[Provider]StatusFetcher{}

func RegisterFetcher(provider Provider, f StatusFetcher) {
	fetchers[provider] = f
}

// Refresh atualiza um pagamento pendente: expira PIX vencido ou consulta o
// provedor e reconcilia. Erros do provedor mantêm o status local.
func Refresh(ctx context.Context, p Payment, now time.Time) Payment {
	if p.Status != StatusPending {
		return p
	}

	if p.Stale(now) {
		out, err := Reconcile(ctx, p.ID, StatusExpired, "")
		if err != nil {
			logs.LogJSON("ERROR", "Error expiring payment", map[string]interface{}{
				"error":     err.Error(),
				"paymentID": p.ID,
			})
			return p
		}
		return out.Payment
	}

	fetcher, ok := fetchers[p.Provider]
	if !ok || p.ExternalID == "" {
		return p
	}

	status, err := fetcher.FetchStatus(ctx, p.ExternalID)
	if err != nil {
		logs.LogJSON("WARN", "Provider status lookup failed", map[string]interface{}{
			"error":     err.Error(),
			"paymentID": p.ID,
			"provider":  p.Provider,
		})
		return p
	}
	if status == p.Status {
		return p
	}

	out, err := Reconcile(ctx, p.ID, status, p.ExternalID)
	if err != nil {
		logs.LogJSON("ERROR", "Error reconciling payment", map[string]interface{}{
			"error":     err.Error(),
			"paymentID": p.ID,
			"status":    status,
		})
		return p
	}
	return out.Payment
}

// GetPayment GET /api/payments/:id
func GetPayment(c *gin.Context) {
	route := c.FullPath()
	userID := c.GetString("user_id")

	var p Payment
	if err := database.DB.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&p).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pagamento não encontrado"})
		logs.LogJSON("WARN", "Payment not found", map[string]interface{}{
			"route":     route,
			"userID":    userID,
			"paymentID": c.Param("id"),
		})
		return
	}

	p = Refresh(c.Request.Context(), p, time.Now())

	c.JSON(http.StatusOK, gin.H{"payment": p})
}

// ListPayments GET /api/payments
func ListPayments(c *gin.Context) {
	route := c.FullPath()
	userID := c.GetString("user_id")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var payments []Payment
	if err := database.DB.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao buscar pagamentos"})
		logs.LogJSON("ERROR", "Error fetching payments", map[string]interface{}{
			"error":  err.Error(),
			"route":  route,
			"userID": userID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

// StatusCode traduz os erros de Reconcile para HTTP
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrPaymentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
