package correction

import (
	"encoding/json"
	"time"
)

type Mode string

const (
	ModeCorrect Mode = "correct"
	ModeRewrite Mode = "rewrite"
)

// Correction é o histórico de uma chamada autenticada
type Correction struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	CreatedAt      time.Time `json:"created_at"`
	UserID         string    `json:"user_id" gorm:"index"`
	Mode           Mode      `json:"mode"`
	Style          string    `json:"style,omitempty"`
	OriginalText   string    `json:"original_text" gorm:"type:text"`
	ResultText     string    `json:"result_text" gorm:"type:text"`
	CharacterCount int       `json:"character_count"`
	ChangesCount   int       `json:"changes_count"`
	EvaluationJSON string    `json:"-" gorm:"column:evaluation;type:jsonb"`
}

// Evaluation é a avaliação do texto devolvida junto da correção
type Evaluation struct {
	Strengths   []string `json:"strengths"`
	Weaknesses  []string `json:"weaknesses"`
	Suggestions []string `json:"suggestions"`
	Score       float64  `json:"score"`
}

// Result é a saída já normalizada do provedor
type Result struct {
	Text       string      `json:"text"`
	Evaluation *Evaluation `json:"evaluation,omitempty"`
}

// UsageCounter conta as correções de um usuário por dia (fuso de Brasília)
type UsageCounter struct {
	UserID string    `gorm:"primaryKey"`
	Day    time.Time `gorm:"primaryKey;type:date"`
	Count  int
}

type CorrectInput struct {
	Text string `json:"text" binding:"required"`
}

type RewriteInput struct {
	Text  string `json:"text" binding:"required"`
	Style string `json:"style" binding:"required"`
}

func (c Correction) evaluation() *Evaluation {
	if c.EvaluationJSON == "" || c.EvaluationJSON == "null" {
		return nil
	}
	var ev Evaluation
	if err := json.Unmarshal([]byte(c.EvaluationJSON), &ev); err != nil {
		return nil
	}
	return &ev
}
