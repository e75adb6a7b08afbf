package auth

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/textocerto/TextoCerto-Back/internal/logs"
	"github.com/textocerto/TextoCerto-Back/internal/supabase"
	"github.com/textocerto/TextoCerto-Back/internal/user"
)

const minPasswordLength = 6

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (in *credentials) validate() string {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if in.Email == "" || in.Password == "" {
		return "E-mail e senha são obrigatórios"
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return "E-mail inválido"
	}
	if len([]rune(in.Password)) < minPasswordLength {
		return "A senha deve ter pelo menos 6 caracteres"
	}
	return ""
}

// supabaseStatus repassa o status de erro do Supabase quando ele existir
func supabaseStatus(err error) (int, string) {
	var apiErr *supabase.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
		return apiErr.StatusCode, apiErr.Body
	}
	return http.StatusBadGateway, ""
}

// Signup POST /api/signup
func Signup(c *gin.Context) {
	route := c.FullPath()

	var input credentials
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requisição inválida"})
		return
	}
	if msg := input.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if supabase.Auth == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Autenticação indisponível"})
		return
	}

	if user.ExistsByEmail(input.Email) {
		c.JSON(http.StatusConflict, gin.H{"error": "E-mail já cadastrado"})
		return
	}

	userID, err := supabase.Auth.SignUp(c.Request.Context(), input.Email, input.Password, map[string]interface{}{
		"name": input.Name,
	})
	if err != nil {
		status, details := supabaseStatus(err)
		c.JSON(status, gin.H{"error": "Erro ao criar a conta", "details": details})
		logs.LogJSON("ERROR", "Supabase signup failed", map[string]interface{}{
			"error": err.Error(),
			"route": route,
		})
		return
	}

	if err := user.EnsureUser(userID, input.Email); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao registrar o usuário"})
		logs.LogJSON("ERROR", "Local user insert failed", map[string]interface{}{
			"error":  err.Error(),
			"route":  route,
			"userID": userID,
		})
		return
	}
	if input.Name != "" {
		if err := user.SetName(userID, input.Name); err != nil {
			logs.LogJSON("WARN", "Could not save user name", map[string]interface{}{
				"error":  err.Error(),
				"userID": userID,
			})
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Conta criada com sucesso",
		"user": gin.H{
			"id":    userID,
			"email": input.Email,
			"name":  input.Name,
			"plan":  user.PlanFree,
		},
	})
	logs.LogJSON("INFO", "User signed up", map[string]interface{}{
		"route":  route,
		"userID": userID,
	})
}

// Login POST /api/login
func Login(c *gin.Context) {
	route := c.FullPath()

	var input credentials
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requisição inválida"})
		return
	}
	if msg := input.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if supabase.Auth == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Autenticação indisponível"})
		return
	}

	session, err := supabase.Auth.SignInWithPassword(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		status, _ := supabaseStatus(err)
		if status == http.StatusBadRequest {
			status = http.StatusUnauthorized
		}
		c.JSON(status, gin.H{"error": "E-mail ou senha incorretos"})
		logs.LogJSON("WARN", "Login failed", map[string]interface{}{
			"error": err.Error(),
			"route": route,
		})
		return
	}

	if err := user.EnsureUser(session.User.ID, session.User.Email); err != nil {
		logs.LogJSON("ERROR", "Local user sync failed", map[string]interface{}{
			"error":  err.Error(),
			"route":  route,
			"userID": session.User.ID,
		})
	}

	c.JSON(http.StatusOK, session)
}

// Refresh POST /api/refresh
func Refresh(c *gin.Context) {
	var input struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh_token obrigatório"})
		return
	}
	if supabase.Auth == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Autenticação indisponível"})
		return
	}

	session, err := supabase.Auth.RefreshSession(c.Request.Context(), input.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Sessão expirada, faça login novamente"})
		logs.LogJSON("WARN", "Session refresh failed", map[string]interface{}{
			"error": err.Error(),
			"route": c.FullPath(),
		})
		return
	}

	c.JSON(http.StatusOK, session)
}
