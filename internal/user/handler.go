package user

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/textocerto/TextoCerto-Back/internal/database"
	"github.com/textocerto/TextoCerto-Back/internal/logs"
	"github.com/textocerto/TextoCerto-Back/internal/supabase"
)

// ListUsers GET /api/admin/users
func ListUsers(c *gin.Context) {
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

	query := database.DB.Model(&User{}).Order("created_at DESC")

	if q := strings.TrimSpace(c.Query("q")); q != "" {
		if len(q) < 2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "A busca deve conter pelo menos 2 caracteres"})
			return
		}
		query = query.Where("email ILIKE ? OR name ILIKE ?", "%"+q+"%", "%"+q+"%")
	}
	if plan := Plan(c.Query("plan")); plan != "" {
		if !plan.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Plano inválido"})
			return
		}
		query = query.Where("plan = ?", plan)
	}

	var total int64
	query.Count(&total)

	var users []User
	if err := query.Limit(limit).Offset((page - 1) * limit).Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao buscar usuários"})
		logs.LogJSON("ERROR", "Error fetching users", map[string]interface{}{
			"error":  err.Error(),
			"route":  route,
			"userID": userID,
		})
		return
	}

	now := time.Now()
	response := make([]gin.H, 0, len(users))
	for _, u := range users {
		response = append(response, planResponse(u, now))
	}

	c.JSON(http.StatusOK, gin.H{
		"users": response,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

// GetUser GET /api/admin/users/:id
func GetUser(c *gin.Context) {
	id := c.Param("id")

	u, err := GetByID(id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Usuário não encontrado"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao buscar usuário"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": planResponse(u, time.Now())})
}

type updatePlanInput struct {
	Plan Plan `json:"plan" binding:"required"`
	Days int  `json:"days"`
}

// UpdateUserPlan PATCH /api/admin/users/:id/plan
func UpdateUserPlan(c *gin.Context) {
	route := c.FullPath()
	adminID := c.GetString("user_id")
	id := c.Param("id")

	var input updatePlanInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requisição inválida"})
		return
	}
	if !input.Plan.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Plano inválido"})
		return
	}
	if input.Days < 0 || input.Days > 3650 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantidade de dias inválida"})
		return
	}

	updates := map[string]interface{}{
		"plan":     input.Plan,
		"is_admin": input.Plan == PlanAdmin,
	}
	switch {
	case input.Plan == PlanPro && input.Days > 0:
		updates["pro_expires_at"] = time.Now().AddDate(0, 0, input.Days)
	default:
		updates["pro_expires_at"] = nil
	}

	res := database.DB.Model(&User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao atualizar plano"})
		logs.LogJSON("ERROR", "Admin plan update error", map[string]interface{}{
			"error":  res.Error.Error(),
			"route":  route,
			"userID": adminID,
			"target": id,
		})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Usuário não encontrado"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Plano atualizado"})
	logs.LogJSON("INFO", "Admin updated user plan", map[string]interface{}{
		"route":  route,
		"userID": adminID,
		"target": id,
		"plan":   input.Plan,
		"days":   input.Days,
	})
}

// DeleteUser DELETE /api/admin/users/:id
func DeleteUser(c *gin.Context) {
	route := c.FullPath()
	adminID := c.GetString("user_id")
	id := c.Param("id")

	if id == adminID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Não é possível excluir a própria conta por aqui"})
		return
	}

	if err := supabase.Auth.DeleteUser(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro do Supabase ao excluir usuário"})
		logs.LogJSON("ERROR", "Supabase user deletion error", map[string]interface{}{
			"error":  err.Error(),
			"route":  route,
			"userID": adminID,
			"target": id,
		})
		return
	}

	// normalmente já removido em cascata a partir de auth.users
	database.DB.Where("id = ?", id).Delete(&User{})

	c.JSON(http.StatusOK, gin.H{"message": "Usuário excluído"})
	logs.LogJSON("INFO", "User deleted successfully", map[string]interface{}{
		"route":  route,
		"userID": adminID,
		"target": id,
	})
}
