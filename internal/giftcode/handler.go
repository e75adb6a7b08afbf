package giftcode

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/textocerto/TextoCerto-Back/internal/database"
	"github.com/textocerto/TextoCerto-Back/internal/logs"
)

const maxBatch = 500

var redeemErrors = map[error]struct {
	status  int
	message string
}{
	ErrCodeNotFound:    {http.StatusNotFound, "Código inválido"},
	ErrCodeExpired:     {http.StatusGone, "Este código expirou"},
	ErrCodeDisabled:    {http.StatusGone, "Este código foi desativado"},
	ErrCodeExhausted:   {http.StatusConflict, "Este código já atingiu o limite de resgates"},
	ErrAlreadyRedeemed: {http.StatusConflict, "Você já resgatou este código"},
}

// RedeemCode POST /api/gift/redeem
func RedeemCode(c *gin.Context) {
	route := c.FullPath()
	userID := c.GetString("user_id")

	var input RedeemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Informe o código"})
		return
	}

	now := time.Now()
	r, err := Redeem(userID, input.Code, now)
	if err != nil {
		for sentinel, resp := range redeemErrors {
			if errors.Is(err, sentinel) {
				c.JSON(resp.status, gin.H{"error": resp.message})
				logs.LogJSON("WARN", "Gift code redemption refused", map[string]interface{}{
					"route":  route,
					"userID": userID,
					"reason": err.Error(),
				})
				return
			}
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao resgatar o código"})
		logs.LogJSON("ERROR", "Gift code redemption failed", map[string]interface{}{
			"error":  err.Error(),
			"route":  route,
			"userID": userID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Código resgatado com sucesso",
		"plan":           r.User.EffectivePlan(now),
		"plan_days":      r.Code.PlanDays,
		"pro_expires_at": r.User.ProExpiresAt,
	})
	logs.LogJSON("INFO", "Gift code redeemed", map[string]interface{}{
		"route":  route,
		"userID": userID,
		"codeID": r.Code.ID,
	})
}

// CreateCodes POST /api/admin/gift-codes
func CreateCodes(c *gin.Context) {
	route := c.FullPath()
	adminID := c.GetString("user_id")

	var input CreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos", "details": err.Error()})
		return
	}
	if input.Quantity <= 0 {
		input.Quantity = 1
	}
	if input.Quantity > maxBatch || input.PlanDays <= 0 || input.MaxRedemptions < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantidade, dias ou limite de resgates inválidos"})
		return
	}
	if input.MaxRedemptions == 0 {
		input.MaxRedemptions = 1
	}

	now := time.Now()
	codes := make([]GiftCode, 0, input.Quantity)
	for i := 0; i < input.Quantity; i++ {
		code, err := Generate()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao gerar os códigos"})
			return
		}
		codes = append(codes, GiftCode{
			ID:             uuid.New().String(),
			CreatedAt:      now,
			Code:           code,
			PlanDays:       input.PlanDays,
			MaxRedemptions: input.MaxRedemptions,
			ExpiresAt:      input.ExpiresAt,
			CreatedBy:      adminID,
		})
	}

	if err := database.DB.Create(&codes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao salvar os códigos"})
		logs.LogJSON("ERROR", "Error creating gift codes", map[string]interface{}{
			"error":  err.Error(),
			"route":  route,
			"userID": adminID,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"codes": codes})
	logs.LogJSON("INFO", "Gift codes created", map[string]interface{}{
		"route":    route,
		"userID":   adminID,
		"quantity": len(codes),
		"planDays": input.PlanDays,
	})
}

// ListCodes GET /api/admin/gift-codes
func ListCodes(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := database.DB.Model(&GiftCode{})
	switch c.Query("status") {
	case "active":
		query = query.Where("disabled = false AND (expires_at IS NULL OR expires_at > ?) AND redemptions < max_redemptions", time.Now())
	case "disabled":
		query = query.Where("disabled = true")
	}

	var total int64
	query.Count(&total)

	var codes []GiftCode
	if err := query.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&codes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao buscar os códigos"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"codes": codes,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// DisableCode PATCH /api/admin/gift-codes/:id/disable
func DisableCode(c *gin.Context) {
	route := c.FullPath()

	res := database.DB.Model(&GiftCode{}).Where("id = ?", c.Param("id")).Update("disabled", true)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao desativar o código"})
		logs.LogJSON("ERROR", "Error disabling gift code", map[string]interface{}{
			"error":  res.Error.Error(),
			"route":  route,
			"userID": c.GetString("user_id"),
		})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Código não encontrado"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Código desativado"})
}
