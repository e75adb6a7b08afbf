package correction

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

var (
	strictPolicy = bluemonday.StrictPolicy()
	diffPolicy   = newDiffPolicy()

	reZeroWidth  = regexp.MustCompile("[\u200B\u200C\u200D\u2060\uFEFF]")
	reBlankLines = regexp.MustCompile(`\n{3,}`)
	reSpaces     = regexp.MustCompile(`[ \t]+`)
)

func newDiffPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("del", "ins", "br")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^change-(add|remove)$`)).OnElements("del", "ins")
	return p
}

// NormalizeText aplica NFC e limpa espaços sem alterar o conteúdo do texto
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = reZeroWidth.ReplaceAllString(s, "")
	s = norm.NFC.String(s)

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(reSpaces.ReplaceAllString(line, " "), " ")
	}
	s = strings.Join(lines, "\n")
	s = reBlankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// StripHTML remove qualquer marcação e devolve texto puro
func StripHTML(s string) string {
	return html.UnescapeString(strictPolicy.Sanitize(s))
}

// PrepareText é o pipeline aplicado a toda entrada e saída de texto
func PrepareText(s string) string {
	return NormalizeText(StripHTML(s))
}

// SanitizeDiffHTML só deixa passar as marcações geradas por DiffHTML
func SanitizeDiffHTML(s string) string {
	return diffPolicy.Sanitize(s)
}

func CharCount(s string) int {
	return utf8.RuneCountInString(s)
}
