package feedback

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/textocerto/TextoCerto-Back/internal/correction"
	"github.com/textocerto/TextoCerto-Back/internal/database"
	"github.com/textocerto/TextoCerto-Back/internal/logs"
)

const maxDescription = 2000

// CreateFeedback POST /api/feedback
func CreateFeedback(c *gin.Context) {
	route := c.FullPath()
	userID := c.GetString("user_id")

	var input CreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos", "details": err.Error()})
		logs.LogJSON("WARN", "Invalid feedback data", map[string]interface{}{
			"error":  err.Error(),
			"route":  route,
			"userID": userID,
		})
		return
	}

	if !input.Reason.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Motivo inválido"})
		return
	}

	description := correction.PrepareText(input.Description)
	if correction.CharCount(description) > maxDescription {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Descrição muito longa", "max_characters": maxDescription})
		return
	}

	// Só o dono da correção pode relatar
	var count int64
	database.DB.Model(&correction.Correction{}).
		Where("id = ? AND user_id = ?", input.CorrectionID, userID).
		Count(&count)
	if count == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Correção não encontrada"})
		logs.LogJSON("WARN", "Feedback target not found", map[string]interface{}{
			"correctionID": input.CorrectionID,
			"route":        route,
			"userID":       userID,
		})
		return
	}

	var existing Feedback
	if err := database.DB.Where("user_id = ? AND correction_id = ?", userID, input.CorrectionID).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Você já enviou um relato para esta correção"})
		return
	}

	now := time.Now()
	fb := Feedback{
		UserID:       userID,
		CorrectionID: input.CorrectionID,
		Reason:       input.Reason,
		Description:  description,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := database.DB.Omit("User").Create(&fb).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao registrar o relato"})
		logs.LogJSON("ERROR", "Error creating feedback", map[string]interface{}{
			"error":  err.Error(),
			"route":  route,
			"userID": userID,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Obrigado! Seu relato foi enviado.",
		"feedback": fb,
	})

	logs.LogJSON("INFO", "Feedback created", map[string]interface{}{
		"feedbackID":   fb.ID,
		"correctionID": fb.CorrectionID,
		"route":        route,
		"userID":       userID,
	})
}

// ListFeedback GET /api/admin/feedback
func ListFeedback(c *gin.Context) {
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

	query := database.DB.Model(&Feedback{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if reason := c.Query("reason"); reason != "" {
		query = query.Where("reason = ?", reason)
	}

	var total int64
	query.Count(&total)

	var items []Feedback
	if err := query.Preload("User").Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao buscar os relatos"})
		logs.LogJSON("ERROR", "Error fetching feedback", map[string]interface{}{
			"error":  err.Error(),
			"route":  route,
			"userID": userID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"feedback": items,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

// GetFeedback GET /api/admin/feedback/:id, com a correção relatada
func GetFeedback(c *gin.Context) {
	var fb Feedback
	if err := database.DB.Preload("User").First(&fb, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Relato não encontrado"})
		return
	}

	var corr correction.Correction
	response := gin.H{"feedback": fb}
	if err := database.DB.First(&corr, "id = ?", fb.CorrectionID).Error; err == nil {
		response["correction"] = corr
	}
	c.JSON(http.StatusOK, response)
}

// UpdateFeedback PUT /api/admin/feedback/:id
func UpdateFeedback(c *gin.Context) {
	route := c.FullPath()
	userID := c.GetString("user_id")
	id := c.Param("id")

	var input UpdateInput
	if err := c.ShouldBindJSON(&input); err != nil || !input.Status.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status inválido"})
		return
	}

	var fb Feedback
	if err := database.DB.First(&fb, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Relato não encontrado"})
		return
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":     input.Status,
		"admin_note": input.AdminNote,
		"admin_id":   userID,
		"updated_at": now,
	}
	if input.Status == StatusResolved || input.Status == StatusRejected {
		updates["resolved_at"] = &now
	}

	if err := database.DB.Model(&Feedback{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao atualizar o relato"})
		logs.LogJSON("ERROR", "Error updating feedback", map[string]interface{}{
			"error":      err.Error(),
			"feedbackID": id,
			"route":      route,
			"userID":     userID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Relato atualizado"})
	logs.LogJSON("INFO", "Feedback updated", map[string]interface{}{
		"feedbackID": id,
		"status":     input.Status,
		"route":      route,
		"userID":     userID,
	})
}

// DeleteFeedback DELETE /api/admin/feedback/:id
func DeleteFeedback(c *gin.Context) {
	route := c.FullPath()
	userID := c.GetString("user_id")
	id := c.Param("id")

	res := database.DB.Where("id = ?", id).Delete(&Feedback{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao excluir o relato"})
		logs.LogJSON("ERROR", "Error deleting feedback", map[string]interface{}{
			"error":      res.Error.Error(),
			"feedbackID": id,
			"route":      route,
			"userID":     userID,
		})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Relato não encontrado"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Relato excluído"})
}

// GetFeedbackStats GET /api/admin/feedback/stats
func GetFeedbackStats(c *gin.Context) {
	var byStatus []struct {
		Status Status `json:"status"`
		Count  int64  `json:"count"`
	}
	database.DB.Model(&Feedback{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&byStatus)

	var byReason []struct {
		Reason Reason `json:"reason"`
		Count  int64  `json:"count"`
	}
	database.DB.Model(&Feedback{}).
		Select("reason, COUNT(*) as count").
		Group("reason").
		Scan(&byReason)

	var recent int64
	database.DB.Model(&Feedback{}).
		Where("created_at > ?", time.Now().Add(-24*time.Hour)).
		Count(&recent)

	c.JSON(http.StatusOK, gin.H{
		"stats_by_status": byStatus,
		"stats_by_reason": byReason,
		"recent_count":    recent,
	})
}
