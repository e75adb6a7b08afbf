package correction

import (
	"html"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffHTML marca as diferenças entre original e revisado com <del>/<ins>
// e devolve também quantos trechos mudaram.
func DiffHTML(original, revised string) (string, int) {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(original, revised, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var b strings.Builder
	changes := 0
	lastWasChange := false
	for _, d := range diffs {
		text := strings.ReplaceAll(html.EscapeString(d.Text), "\n", "<br>")
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			b.WriteString(text)
			lastWasChange = false
		case diffmatchpatch.DiffDelete:
			b.WriteString(`<del class="change-remove">` + text + `</del>`)
			if !lastWasChange {
				changes++
			}
			lastWasChange = true
		case diffmatchpatch.DiffInsert:
			b.WriteString(`<ins class="change-add">` + text + `</ins>`)
			if !lastWasChange {
				changes++
			}
			lastWasChange = true
		}
	}

	return SanitizeDiffHTML(b.String()), changes
}
