package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/textocerto/TextoCerto-Back/internal/supabase"
)

// OptionalAuthMiddleware identifica o usuário quando há token, sem nunca bloquear.
// Um token expirado é renovado se o cliente mandar X-Refresh-Token.
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		refreshToken := c.GetHeader("X-Refresh-Token")
		if refreshToken != "" && supabase.Auth != nil && isExpired(tokenStr) {
			session, err := supabase.Auth.RefreshSession(c.Request.Context(), refreshToken)
			if err == nil && session.AccessToken != "" {
				tokenStr = session.AccessToken
				c.Set("access_token", session.AccessToken)
				c.Header("X-New-Access-Token", session.AccessToken)
				if session.RefreshToken != "" {
					c.Header("X-New-Refresh-Token", session.RefreshToken)
				}
			}
		}

		if claims, err := parseSupabaseToken(tokenStr); err == nil {
			setIdentity(c, claims)
		}

		c.Next()
	}
}

func isExpired(tokenStr string) bool {
	token, _, err := new(jwt.Parser).ParseUnverified(tokenStr, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Now().After(exp.Time)
}
