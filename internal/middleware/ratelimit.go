package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/textocerto/TextoCerto-Back/internal/logs"
	"github.com/textocerto/TextoCerto-Back/internal/ratelimit"
)

// RateLimit limita por usuário autenticado ou, sem login, por IP
func RateLimit(limiter *ratelimit.Limiter, scope string, policy ratelimit.Policy) gin.HandlerFunc {
	retryAfter := 1
	if policy.RPM > 0 && policy.RPM < 60 {
		retryAfter = 60 / policy.RPM
	}

	return func(c *gin.Context) {
		key := scope + ":ip:" + c.ClientIP()
		if userID := c.GetString("user_id"); userID != "" {
			key = scope + ":user:" + userID
		}

		if !limiter.Allow(c.Request.Context(), key, policy) {
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Muitas requisições. Tente novamente em instantes."})
			logs.LogJSON("WARN", "Rate limit exceeded", map[string]interface{}{
				"route":  c.FullPath(),
				"userID": c.GetString("user_id"),
				"key":    key,
			})
			return
		}

		c.Next()
	}
}
