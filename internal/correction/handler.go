package correction

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/textocerto/TextoCerto-Back/internal/database"
	"github.com/textocerto/TextoCerto-Back/internal/logs"
	"github.com/textocerto/TextoCerto-Back/internal/user"
)

const maxBodyBytes = int64(256 << 10)

var (
	generator      Generator
	requestTimeout = 90 * time.Second
	planOf         = user.PlanOf
)

// SetGenerator define o provedor usado pelos handlers (configurado em main)
func SetGenerator(g Generator) {
	generator = g
}

type job struct {
	mode  Mode
	text  string
	style string
}

// Correct POST /api/correct
func Correct(c *gin.Context) {
	var input CorrectInput
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requisição inválida"})
		return
	}
	run(c, job{mode: ModeCorrect, text: input.Text})
}

// Rewrite POST /api/rewrite
func Rewrite(c *gin.Context) {
	var input RewriteInput
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requisição inválida"})
		return
	}
	if !user.IsKnownStyle(input.Style) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Estilo de reescrita inválido"})
		return
	}
	run(c, job{mode: ModeRewrite, text: input.Text, style: input.Style})
}

func run(c *gin.Context, j job) {
	route := c.FullPath()
	userID := c.GetString("user_id")
	now := time.Now()

	plan, err := planOf(userID, now)
	if err != nil {
		logs.LogJSON("ERROR", "Plan lookup failed, using free limits", map[string]interface{}{
			"error":  err.Error(),
			"route":  route,
			"userID": userID,
		})
	}
	limits := user.LimitsFor(plan)

	text := PrepareText(j.text)
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "O texto está vazio"})
		return
	}
	if n := CharCount(text); n > limits.MaxCharacters {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error":          "O texto excede o limite de caracteres do seu plano",
			"max_characters": limits.MaxCharacters,
			"characters":     n,
			"plan":           plan,
		})
		return
	}
	if j.mode == ModeRewrite && !limits.AllowsStyle(j.style) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Estilo disponível apenas no plano Pro", "plan": plan})
		return
	}

	if generator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Serviço de correção indisponível"})
		return
	}

	used := 0
	if userID != "" {
		used, err = ConsumeDaily(userID, limits.DailyRequests, now)
		if err != nil {
			var qe QuotaError
			if errors.As(err, &qe) {
				c.JSON(http.StatusTooManyRequests, gin.H{
					"error": "Você atingiu o limite diário de correções do plano gratuito",
					"limit": qe.Limit,
					"used":  qe.Used,
				})
				logs.LogJSON("WARN", "Daily quota exceeded", map[string]interface{}{
					"route":  route,
					"userID": userID,
					"limit":  qe.Limit,
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao verificar o limite de uso"})
			logs.LogJSON("ERROR", "Quota check failed", map[string]interface{}{
				"error":  err.Error(),
				"route":  route,
				"userID": userID,
			})
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	result, err := generator.Generate(ctx, j.mode, text, j.style)
	if err != nil {
		if userID != "" {
			if relErr := ReleaseDaily(userID, now); relErr != nil {
				logs.LogJSON("ERROR", "Quota release failed", map[string]interface{}{
					"error":  relErr.Error(),
					"userID": userID,
				})
			}
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Serviço de correção indisponível. Tente novamente."})
		logs.LogJSON("ERROR", "Correction provider failed", map[string]interface{}{
			"error":  err.Error(),
			"route":  route,
			"userID": userID,
			"mode":   j.mode,
		})
		return
	}

	diffHTML, changes := DiffHTML(text, result.Text)

	response := gin.H{
		"mode":       j.mode,
		"text":       result.Text,
		"evaluation": result.Evaluation,
		"diff_html":  diffHTML,
		"changes":    changes,
		"plan":       plan,
	}
	if j.mode == ModeRewrite {
		response["style"] = j.style
	}
	if userID != "" {
		response["usage"] = gin.H{"used": used, "limit": limits.DailyRequests}
		if id, err := saveHistory(userID, j, text, result, changes); err == nil {
			response["id"] = id
		} else {
			logs.LogJSON("ERROR", "Correction history not saved", map[string]interface{}{
				"error":  err.Error(),
				"route":  route,
				"userID": userID,
			})
		}
	}

	c.JSON(http.StatusOK, response)
	logs.LogJSON("INFO", "Correction served", map[string]interface{}{
		"route":      route,
		"userID":     userID,
		"mode":       j.mode,
		"characters": CharCount(text),
		"changes":    changes,
	})
}

func saveHistory(userID string, j job, original string, result Result, changes int) (string, error) {
	evaluation, _ := json.Marshal(result.Evaluation)
	record := Correction{
		ID:             uuid.New().String(),
		CreatedAt:      time.Now(),
		UserID:         userID,
		Mode:           j.mode,
		Style:          j.style,
		OriginalText:   original,
		ResultText:     result.Text,
		CharacterCount: CharCount(original),
		ChangesCount:   changes,
		EvaluationJSON: string(evaluation),
	}
	if err := database.DB.Create(&record).Error; err != nil {
		return "", err
	}
	return record.ID, nil
}

// GetUsage GET /api/usage
func GetUsage(c *gin.Context) {
	userID := c.GetString("user_id")
	now := time.Now()

	plan, err := planOf(userID, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao carregar o plano"})
		return
	}
	used, err := UsedToday(userID, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao carregar o uso"})
		return
	}

	limits := user.LimitsFor(plan)
	c.JSON(http.StatusOK, gin.H{
		"plan":           plan,
		"used_today":     used,
		"daily_limit":    limits.DailyRequests,
		"max_characters": limits.MaxCharacters,
		"resets_at":      DayStart(now).AddDate(0, 0, 1).Add(3 * time.Hour),
	})
}
