package correction

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	reFence      = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
	reLeadingNum = regexp.MustCompile(`^-?\d+(?:[.,]\d+)?`)
)

// flexList aceita tanto ["a","b"] quanto "a" vindos do modelo
type flexList []string

func (l *flexList) UnmarshalJSON(data []byte) error {
	var list []interface{}
	if err := json.Unmarshal(data, &list); err == nil {
		for _, item := range list {
			if s, ok := item.(string); ok {
				*l = append(*l, s)
			}
		}
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single != "" {
			*l = append(*l, single)
		}
		return nil
	}
	return nil
}

type rawEvaluation struct {
	Strengths   flexList        `json:"strengths"`
	Weaknesses  flexList        `json:"weaknesses"`
	Suggestions flexList        `json:"suggestions"`
	Score       json.RawMessage `json:"score"`
}

type rawOutput struct {
	CorrectedText      string         `json:"correctedText"`
	CorrectedTextSnake string         `json:"corrected_text"`
	RewrittenText      string         `json:"rewrittenText"`
	RewrittenTextSnake string         `json:"rewritten_text"`
	Text               string         `json:"text"`
	Evaluation         *rawEvaluation `json:"evaluation"`
}

func (o rawOutput) text(mode Mode) string {
	candidates := []string{o.CorrectedText, o.CorrectedTextSnake, o.RewrittenText, o.RewrittenTextSnake, o.Text}
	if mode == ModeRewrite {
		candidates = []string{o.RewrittenText, o.RewrittenTextSnake, o.CorrectedText, o.CorrectedTextSnake, o.Text}
	}
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return ""
}

// ExtractJSON isola o primeiro objeto JSON de uma resposta que pode vir
// cercada de texto ou de blocos de código Markdown.
func ExtractJSON(content string) (string, bool) {
	content = strings.TrimSpace(content)
	if m := reFence.FindStringSubmatch(content); m != nil {
		content = strings.TrimSpace(m[1])
	}

	for start := strings.Index(content, "{"); start >= 0; {
		var raw json.RawMessage
		if err := json.NewDecoder(strings.NewReader(content[start:])).Decode(&raw); err == nil {
			return string(raw), true
		}
		next := strings.Index(content[start+1:], "{")
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// ParseOutput transforma o conteúdo bruto do modelo em Result.
// Se nada puder ser interpretado como JSON, o conteúdo inteiro vira o texto.
func ParseOutput(content string, mode Mode) Result {
	raw, ok := ExtractJSON(content)
	if !ok {
		return Result{Text: PrepareText(stripFence(content))}
	}

	var out rawOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Result{Text: PrepareText(stripFence(content))}
	}

	text := out.text(mode)
	if text == "" {
		return Result{Text: "", Evaluation: normalizeEvaluation(out.Evaluation)}
	}
	return Result{Text: PrepareText(text), Evaluation: normalizeEvaluation(out.Evaluation)}
}

func stripFence(content string) string {
	content = strings.TrimSpace(content)
	if m := reFence.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	return content
}

func normalizeEvaluation(ev *rawEvaluation) *Evaluation {
	if ev == nil {
		return nil
	}
	out := &Evaluation{
		Strengths:   cleanList(ev.Strengths),
		Weaknesses:  cleanList(ev.Weaknesses),
		Suggestions: cleanList(ev.Suggestions),
		Score:       parseScore(ev.Score),
	}
	if len(out.Strengths) == 0 && len(out.Weaknesses) == 0 && len(out.Suggestions) == 0 && out.Score == 0 {
		return nil
	}
	return out
}

func cleanList(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = PrepareText(item)
		key := strings.ToLower(item)
		if item == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

// parseScore aceita 8, 8.5, "8", "8,5" ou "8/10" e limita o valor a 0..10
func parseScore(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		m := reLeadingNum.FindString(strings.TrimSpace(s))
		if m == "" {
			return 0
		}
		n, err = strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
		if err != nil {
			return 0
		}
	}

	if math.IsNaN(n) {
		return 0
	}
	return math.Max(0, math.Min(10, n))
}
