package admin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/textocerto/TextoCerto-Back/internal/database"
	"github.com/textocerto/TextoCerto-Back/internal/logs"
	"github.com/textocerto/TextoCerto-Back/internal/payment"
	"github.com/textocerto/TextoCerto-Back/internal/user"
)

const dateLayout = "2006-01-02"

// dateRange lê start_date/end_date (AAAA-MM-DD); padrão: últimos 30 dias
func dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	start := now.AddDate(0, 0, -30).Truncate(24 * time.Hour)
	end := now

	if s := c.Query("start_date"); s != "" {
		parsed, err := time.Parse(dateLayout, s)
		if err != nil {
			return start, end, false
		}
		start = parsed
	}
	if s := c.Query("end_date"); s != "" {
		parsed, err := time.Parse(dateLayout, s)
		if err != nil {
			return start, end, false
		}
		end = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	if end.Before(start) {
		return start, end, false
	}
	return start, end, true
}

// GetDashboardStats GET /api/admin/stats
func GetDashboardStats(c *gin.Context) {
	route := c.FullPath()
	userID := c.GetString("user_id")

	startDate, endDate, ok := dateRange(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Período inválido (use AAAA-MM-DD)"})
		return
	}

	var totalUsers, proUsers, adminUsers, newUsers int64
	database.DB.Table("users").Count(&totalUsers)
	database.DB.Table("users").
		Where("plan = ? AND (pro_expires_at IS NULL OR pro_expires_at > ?)", user.PlanPro, time.Now()).
		Count(&proUsers)
	database.DB.Table("users").Where("is_admin = true OR plan = ?", user.PlanAdmin).Count(&adminUsers)
	database.DB.Table("users").Where("created_at BETWEEN ? AND ?", startDate, endDate).Count(&newUsers)

	var corrections, rewrites int64
	database.DB.Table("corrections").
		Where("mode = ? AND created_at BETWEEN ? AND ?", "correct", startDate, endDate).
		Count(&corrections)
	database.DB.Table("corrections").
		Where("mode = ? AND created_at BETWEEN ? AND ?", "rewrite", startDate, endDate).
		Count(&rewrites)

	var revenue []struct {
		Provider string `json:"provider"`
		Count    int64  `json:"count"`
		Cents    int64  `json:"amount_cents"`
	}
	database.DB.Table("payments").
		Select("provider, COUNT(*) as count, COALESCE(SUM(amount_cents), 0) as cents").
		Where("status = ? AND approved_at BETWEEN ? AND ?", payment.StatusApproved, startDate, endDate).
		Group("provider").
		Scan(&revenue)

	var pendingPayments int64
	database.DB.Table("payments").Where("status = ?", payment.StatusPending).Count(&pendingPayments)

	stats := gin.H{
		"total_users":      totalUsers,
		"free_users":       totalUsers - proUsers - adminUsers,
		"pro_users":        proUsers,
		"admin_users":      adminUsers,
		"new_users":        newUsers,
		"corrections":      corrections,
		"rewrites":         rewrites,
		"revenue":          revenue,
		"pending_payments": pendingPayments,
		"date_range": gin.H{
			"start": startDate.Format(dateLayout),
			"end":   endDate.Format(dateLayout),
		},
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
	logs.LogJSON("INFO", "Admin stats retrieved successfully", map[string]interface{}{
		"route":  route,
		"userID": userID,
	})
}

// GetChartData GET /api/admin/charts/:type
func GetChartData(c *gin.Context) {
	route := c.FullPath()
	userID := c.GetString("user_id")
	chartType := c.Param("type")

	startDate, endDate, ok := dateRange(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Período inválido (use AAAA-MM-DD)"})
		return
	}
	if endDate.Sub(startDate) > 366*24*time.Hour {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Período máximo de um ano"})
		return
	}

	switch chartType {
	case "evolution":
		c.JSON(http.StatusOK, gin.H{"data": getEvolutionData(startDate, endDate)})
	case "distribution":
		c.JSON(http.StatusOK, gin.H{"data": getDistributionData()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tipo de gráfico não suportado"})
		return
	}

	logs.LogJSON("INFO", "Chart data retrieved successfully", map[string]interface{}{
		"route":     route,
		"userID":    userID,
		"chartType": chartType,
		"startDate": startDate.Format(dateLayout),
		"endDate":   endDate.Format(dateLayout),
	})
}

type dayCount struct {
	Day   time.Time
	Count int64
}

func countByDay(table, column, where string, start, end time.Time, args ...interface{}) map[string]int64 {
	var rows []dayCount
	query := database.DB.Table(table).
		Select("date_trunc('day', "+column+") as day, COUNT(*) as count").
		Where(column+" BETWEEN ? AND ?", start, end)
	if where != "" {
		query = query.Where(where, args...)
	}
	query.Group("day").Scan(&rows)

	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Day.Format(dateLayout)] = r.Count
	}
	return out
}

func getEvolutionData(startDate, endDate time.Time) []gin.H {
	users := countByDay("users", "created_at", "", startDate, endDate)
	corrections := countByDay("corrections", "created_at", "", startDate, endDate)
	payments := countByDay("payments", "approved_at", "status = ?", startDate, endDate, payment.StatusApproved)

	var results []gin.H
	for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
		key := d.Format(dateLayout)
		results = append(results, gin.H{
			"date":        key,
			"users":       users[key],
			"corrections": corrections[key],
			"payments":    payments[key],
		})
	}
	return results
}

func getDistributionData() []gin.H {
	var free, pro, admins int64
	now := time.Now()

	database.DB.Table("users").Where("is_admin = true OR plan = ?", user.PlanAdmin).Count(&admins)
	database.DB.Table("users").
		Where("is_admin = false AND plan = ? AND (pro_expires_at IS NULL OR pro_expires_at > ?)", user.PlanPro, now).
		Count(&pro)
	database.DB.Table("users").
		Where("is_admin = false AND (plan = ? OR (plan = ? AND pro_expires_at <= ?))", user.PlanFree, user.PlanPro, now).
		Count(&free)

	return []gin.H{
		{"name": "Free", "value": free, "color": "#3B82F6"},
		{"name": "Pro", "value": pro, "color": "#F59E0B"},
		{"name": "Admin", "value": admins, "color": "#8B5CF6"},
	}
}

// GetTopUsers GET /api/admin/top-users
func GetTopUsers(c *gin.Context) {
	route := c.FullPath()
	userID := c.GetString("user_id")

	limit := 10
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	var top []struct {
		UserID          string `json:"user_id"`
		Email           string `json:"email"`
		Plan            string `json:"plan"`
		CorrectionCount int64  `json:"correction_count"`
		Characters      int64  `json:"characters"`
	}

	database.DB.Table("corrections").
		Select("corrections.user_id, users.email, users.plan, COUNT(corrections.id) as correction_count, COALESCE(SUM(corrections.character_count), 0) as characters").
		Joins("LEFT JOIN users ON corrections.user_id = users.id").
		Group("corrections.user_id, users.email, users.plan").
		Order("correction_count DESC").
		Limit(limit).
		Scan(&top)

	c.JSON(http.StatusOK, gin.H{"top_by_corrections": top})

	logs.LogJSON("INFO", "Top users retrieved successfully", map[string]interface{}{
		"route":  route,
		"userID": userID,
		"limit":  limit,
	})
}
