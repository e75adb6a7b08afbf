package admin

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/textocerto/TextoCerto-Back/internal/database"
	"github.com/textocerto/TextoCerto-Back/internal/logs"
	"github.com/textocerto/TextoCerto-Back/internal/payment"
	"github.com/textocerto/TextoCerto-Back/internal/storage"
)

const exportLinkTTL = 15 * time.Minute

func paymentFilters(c *gin.Context, query *gorm.DB) *gorm.DB {
	if provider := c.Query("provider"); provider != "" {
		query = query.Where("provider = ?", provider)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if userID := c.Query("user_id"); userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	return query
}

// ListPayments GET /api/admin/payments
func ListPayments(c *gin.Context) {
	route := c.FullPath()
	userID := c.GetString("user_id")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := paymentFilters(c, database.DB.Model(&payment.Payment{}))

	var total int64
	query.Count(&total)

	var payments []payment.Payment
	if err := query.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao buscar pagamentos"})
		logs.LogJSON("ERROR", "Error fetching payments", map[string]interface{}{
			"error":  err.Error(),
			"route":  route,
			"userID": userID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payments": payments,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

type statusInput struct {
	Status payment.Status `json:"status" binding:"required"`
}

// UpdatePaymentStatus PATCH /api/admin/payments/:id/status
// Serve para estornos e ajustes manuais; passa pelas mesmas regras dos webhooks.
func UpdatePaymentStatus(c *gin.Context) {
	route := c.FullPath()
	userID := c.GetString("user_id")
	paymentID := c.Param("id")

	var input statusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status inválido"})
		return
	}

	out, err := payment.Reconcile(c.Request.Context(), paymentID, input.Status, "")
	if err != nil {
		c.JSON(payment.StatusCode(err), gin.H{"error": "Não foi possível alterar o status", "details": err.Error()})
		logs.LogJSON("WARN", "Manual payment status change refused", map[string]interface{}{
			"error":     err.Error(),
			"route":     route,
			"userID":    userID,
			"paymentID": paymentID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment": out.Payment, "changed": out.Changed})
	logs.LogJSON("INFO", "Payment status changed by admin", map[string]interface{}{
		"route":     route,
		"userID":    userID,
		"paymentID": paymentID,
		"status":    input.Status,
	})
}

var csvHeader = []string{"id", "created_at", "user_id", "provider", "method", "external_id", "status", "amount", "currency", "plan_days", "approved_at"}

func writePaymentsCSV(payments []payment.Payment) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, p := range payments {
		approved := ""
		if p.ApprovedAt != nil {
			approved = p.ApprovedAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			p.ID,
			p.CreatedAt.UTC().Format(time.RFC3339),
			p.UserID,
			string(p.Provider),
			string(p.Method),
			p.ExternalID,
			string(p.Status),
			fmt.Sprintf("%.2f", p.Amount()),
			p.Currency,
			strconv.Itoa(p.PlanDays),
			approved,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportPayments POST /api/admin/exports/payments
func ExportPayments(c *gin.Context) {
	route := c.FullPath()
	userID := c.GetString("user_id")

	if !storage.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Exportação indisponível"})
		return
	}

	startDate, endDate, ok := dateRange(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Período inválido (use AAAA-MM-DD)"})
		return
	}

	var payments []payment.Payment
	query := paymentFilters(c, database.DB.Model(&payment.Payment{})).
		Where("created_at BETWEEN ? AND ?", startDate, endDate)
	if err := query.Order("created_at ASC").Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao buscar pagamentos"})
		return
	}

	data, err := writePaymentsCSV(payments)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao gerar o CSV"})
		return
	}

	key := fmt.Sprintf("exports/payments_%s_%s_%d.csv",
		startDate.Format(dateLayout), endDate.Format(dateLayout), time.Now().Unix())
	ctx := c.Request.Context()
	if err := storage.UploadExport(ctx, key, bytes.NewReader(data), "text/csv; charset=utf-8"); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Erro ao enviar o arquivo"})
		logs.LogJSON("ERROR", "Payments export upload failed", map[string]interface{}{
			"error":  err.Error(),
			"route":  route,
			"userID": userID,
		})
		return
	}

	url, err := storage.PresignGet(ctx, key, exportLinkTTL)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Erro ao gerar o link de download"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":        url,
		"key":        key,
		"rows":       len(payments),
		"expires_at": time.Now().Add(exportLinkTTL),
	})
	logs.LogJSON("INFO", "Payments exported", map[string]interface{}{
		"route":  route,
		"userID": userID,
		"rows":   len(payments),
		"key":    key,
	})
}
