package correction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiffHTMLIdentical(t *testing.T) {
	out, changes := DiffHTML("Nada mudou.", "Nada mudou.")
	assert.Equal(t, "Nada mudou.", out)
	assert.Equal(t, 0, changes)
}

func TestDiffHTMLMarksChanges(t *testing.T) {
	out, changes := DiffHTML("Eu vou a escola", "Eu vou à escola")

	assert.Contains(t, out, `<del class="change-remove">`)
	assert.Contains(t, out, `<ins class="change-add">`)
	assert.Equal(t, 1, changes)
}

func TestDiffHTMLEscapesInput(t *testing.T) {
	out, _ := DiffHTML("x", "<b>x</b>")
	assert.NotContains(t, out, "<b>")
	assert.Contains(t, out, "&lt;b&gt;")
}

func TestDiffHTMLLineBreaks(t *testing.T) {
	out, changes := DiffHTML("linha um\nlinha dois", "linha um\nlinha dois")
	assert.Contains(t, out, "<br")
	assert.NotContains(t, out, "\n")
	assert.Equal(t, 0, changes)
}
