package logs

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
)

var logger = log.New(os.Stdout, "", 0)

// SetOutput redireciona os logs (usado nos testes)
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

func LogJSON(level, message string, fields map[string]interface{}) {
	logEntry := map[string]interface{}{
		"severity": level, // "DEBUG", "INFO", "WARN", "ERROR" & "FATAL"
		"message":  message,
		"time":     time.Now().Format(time.RFC3339),
	}
	for k, v := range fields {
		logEntry[k] = v
	}
	jsonLog, _ := json.Marshal(logEntry)
	logger.Println(string(jsonLog))
}

// RequestLogger substitui o logger texto do gin por uma linha JSON por requisição
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := "INFO"
		switch {
		case status >= 500:
			level = "ERROR"
		case status >= 400:
			level = "WARN"
		}

		LogJSON(level, "HTTP request", map[string]interface{}{
			"method":    c.Request.Method,
			"route":     c.FullPath(),
			"path":      c.Request.URL.Path,
			"status":    status,
			"latencyMs": time.Since(start).Milliseconds(),
			"userID":    c.GetString("user_id"),
		})
	}
}
