package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTutorBuilder_Build(t *testing.T) {
	out := NewTutorBuilder("intro.pdf", "Q: q1\nA: a1\nCells are small.", "What is chapter 1 about?").Build()

	assert.Contains(t, out, "studying the book titled 'intro.pdf'")
	assert.Contains(t, out, "<reference_material>\nQ: q1\nA: a1\nCells are small.\n</reference_material>")
	assert.Contains(t, out, "<user_question>\nWhat is chapter 1 about?\n</user_question>")

	// context comes before the question
	assert.Less(t, strings.Index(out, "<reference_material>"), strings.Index(out, "<user_question>"))
}

func TestTutorBuilder_DefaultsTitle(t *testing.T) {
	out := NewTutorBuilder("  ", "", "hi").Build()
	assert.Contains(t, out, "Book Title: Untitled")
}
