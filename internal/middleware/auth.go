package middleware

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var errMissingSubject = errors.New("sub ausente no token")

// parseSupabaseToken valida um access token do Supabase (HS256)
func parseSupabaseToken(tokenStr string) (jwt.MapClaims, error) {
	jwtSecret := []byte(os.Getenv("JWT_SECRET"))
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if sub, _ := claims["sub"].(string); sub == "" {
		return nil, errMissingSubject
	}
	return claims, nil
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}

func setIdentity(c *gin.Context, claims jwt.MapClaims) {
	c.Set("user_id", claims["sub"].(string))
	if email, ok := claims["email"].(string); ok {
		c.Set("user_email", email)
	}
}

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token obrigatório"})
			return
		}

		claims, err := parseSupabaseToken(tokenStr)
		if err != nil {
			if errors.Is(err, errMissingSubject) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "ID de usuário ausente"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token inválido"})
			return
		}

		setIdentity(c, claims)
		c.Next()
	}
}
