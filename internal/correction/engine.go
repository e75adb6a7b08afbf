package correction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Generator produz a correção ou reescrita de um texto
type Generator interface {
	Generate(ctx context.Context, mode Mode, text, style string) (Result, error)
}

var ErrEmptyOutput = errors.New("provedor devolveu texto vazio")

// Engine chama um endpoint de chat completions compatível com a API da OpenAI
type Engine struct {
	http   *resty.Client
	url    string
	apiKey string
	model  string
}

type EngineConfig struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration
}

func NewEngine(cfg EngineConfig) *Engine {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(1).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == 429 || r.StatusCode() >= 500
		})
	return &Engine{http: client, url: cfg.URL, apiKey: cfg.APIKey, model: cfg.Model}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const correctPrompt = `Você é um revisor profissional de língua portuguesa (norma culta do Brasil).
Corrija ortografia, acentuação, concordância, regência, crase e pontuação do texto do usuário,
preservando o sentido, o tom e a formatação em parágrafos. Não acrescente conteúdo.
Responda somente com um objeto JSON no formato:
{"correctedText": "...", "evaluation": {"strengths": ["..."], "weaknesses": ["..."], "suggestions": ["..."], "score": 0-10}}`

const rewritePrompt = `Você é um redator profissional de língua portuguesa (Brasil).
Reescreva o texto do usuário no estilo "%s", mantendo as informações e corrigindo eventuais erros.
%s
Responda somente com um objeto JSON no formato: {"rewrittenText": "..."}`

var styleHints = map[string]string{
	"formal":    "Use linguagem formal, impessoal e objetiva.",
	"informal":  "Use linguagem leve e próxima do leitor, sem gírias excessivas.",
	"academico": "Use registro acadêmico, com vocabulário técnico e coesão entre os parágrafos.",
	"criativo":  "Use linguagem expressiva e criativa, com ritmo agradável.",
	"conciso":   "Seja o mais breve possível sem perder informação.",
}

func systemPrompt(mode Mode, style string) string {
	if mode == ModeRewrite {
		return fmt.Sprintf(rewritePrompt, style, styleHints[style])
	}
	return correctPrompt
}

func (e *Engine) Generate(ctx context.Context, mode Mode, text, style string) (Result, error) {
	req := chatRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(mode, style)},
			{Role: "user", Content: text},
		},
		Temperature:    0.2,
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	var out chatResponse
	resp, err := e.http.R().
		SetContext(ctx).
		SetAuthToken(e.apiKey).
		SetBody(req).
		SetResult(&out).
		Post(e.url)
	if err != nil {
		return Result{}, fmt.Errorf("correction provider: %w", err)
	}
	if resp.IsError() {
		return Result{}, fmt.Errorf("correction provider: status %d", resp.StatusCode())
	}
	if len(out.Choices) == 0 {
		return Result{}, ErrEmptyOutput
	}

	result := ParseOutput(out.Choices[0].Message.Content, mode)
	if result.Text == "" {
		return Result{}, ErrEmptyOutput
	}
	return result, nil
}
