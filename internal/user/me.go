package user

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/textocerto/TextoCerto-Back/internal/logs"
)

func planResponse(u User, now time.Time) gin.H {
	effective := u.EffectivePlan(now)
	limits := LimitsFor(effective)

	response := gin.H{
		"id":             u.ID,
		"email":          u.Email,
		"name":           u.Name,
		"plan":           effective,
		"pro_expires_at": u.ProExpiresAt,
		"created_at":     u.CreatedAt,
		"limits": gin.H{
			"max_characters": limits.MaxCharacters,
			"daily_requests": limits.DailyRequests,
			"rewrite_styles": limits.RewriteStyles,
		},
		"has_subscription": u.StripeSubscriptionID != "",
	}
	if effective == PlanAdmin {
		response["is_admin"] = true
	}
	return response
}

// GetMe GET /api/me
func GetMe(c *gin.Context) {
	userID := c.GetString("user_id")

	if err := EnsureUser(userID, c.GetString("user_email")); err != nil {
		logs.LogJSON("ERROR", "User bootstrap failed", map[string]interface{}{
			"error":  err.Error(),
			"route":  c.FullPath(),
			"userID": userID,
		})
	}

	u, err := GetByID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Usuário não encontrado"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": planResponse(u, time.Now())})
}

// UpdateMe PATCH /api/me
func UpdateMe(c *gin.Context) {
	route := c.FullPath()
	userID := c.GetString("user_id")

	var input struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requisição inválida"})
		return
	}

	name := strings.TrimSpace(input.Name)
	if name == "" || len([]rune(name)) > 80 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nome inválido"})
		return
	}

	if err := SetName(userID, name); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao atualizar perfil"})
		logs.LogJSON("ERROR", "User update error", map[string]interface{}{
			"error":  err.Error(),
			"route":  route,
			"userID": userID,
		})
		return
	}

	u, err := GetByID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Usuário não encontrado"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Perfil atualizado", "user": planResponse(u, time.Now())})
}
