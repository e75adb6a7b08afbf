package correction

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/textocerto/TextoCerto-Back/internal/database"
	"github.com/textocerto/TextoCerto-Back/internal/logs"
)

func correctionResponse(c Correction, full bool) gin.H {
	h := gin.H{
		"id":              c.ID,
		"created_at":      c.CreatedAt,
		"mode":            c.Mode,
		"style":           c.Style,
		"character_count": c.CharacterCount,
		"changes_count":   c.ChangesCount,
	}
	if full {
		h["original_text"] = c.OriginalText
		h["result_text"] = c.ResultText
		h["evaluation"] = c.evaluation()
		h["diff_html"], _ = DiffHTML(c.OriginalText, c.ResultText)
	} else {
		h["preview"] = preview(c.ResultText, 140)
	}
	return h
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// ListCorrections GET /api/corrections
func ListCorrections(c *gin.Context) {
	route := c.FullPath()
	userID := c.GetString("user_id")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}

	query := database.DB.Model(&Correction{}).Where("user_id = ?", userID)
	if mode := Mode(c.Query("mode")); mode == ModeCorrect || mode == ModeRewrite {
		query = query.Where("mode = ?", mode)
	}

	var total int64
	query.Count(&total)

	var items []Correction
	if err := query.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao buscar o histórico"})
		logs.LogJSON("ERROR", "Error fetching corrections", map[string]interface{}{
			"error":  err.Error(),
			"route":  route,
			"userID": userID,
		})
		return
	}

	response := make([]gin.H, 0, len(items))
	for _, item := range items {
		response = append(response, correctionResponse(item, false))
	}

	c.JSON(http.StatusOK, gin.H{
		"corrections": response,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

// GetCorrection GET /api/corrections/:id
func GetCorrection(c *gin.Context) {
	userID := c.GetString("user_id")

	var item Correction
	if err := database.DB.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&item).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Correção não encontrada"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"correction": correctionResponse(item, true)})
}

// DeleteCorrection DELETE /api/corrections/:id
func DeleteCorrection(c *gin.Context) {
	route := c.FullPath()
	userID := c.GetString("user_id")
	id := c.Param("id")

	res := database.DB.Where("id = ? AND user_id = ?", id, userID).Delete(&Correction{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao excluir a correção"})
		logs.LogJSON("ERROR", "Error deleting correction", map[string]interface{}{
			"error":  res.Error.Error(),
			"route":  route,
			"userID": userID,
		})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Correção não encontrada"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Correção excluída"})
}
