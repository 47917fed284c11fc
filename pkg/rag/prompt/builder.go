package prompt

import (
	"strings"

	"studymate-be/internal/constant"
)

// TutorBuilder renders the single prompt sent to the inference backend for a book
type TutorBuilder struct {
	bookTitle string
	context   string
	question  string
}

// NewTutorBuilder creates a prompt builder. context is the already bounded window.
func NewTutorBuilder(bookTitle, context, question string) *TutorBuilder {
	if strings.TrimSpace(bookTitle) == "" {
		bookTitle = constant.DefaultBookTitle
	}
	return &TutorBuilder{
		bookTitle: bookTitle,
		context:   context,
		question:  question,
	}
}

// Build orders the sections: role, formatting rules, book context, question
func (b *TutorBuilder) Build() string {
	var prompt strings.Builder

	b.writeRole(&prompt)
	b.writeRules(&prompt)
	b.writeReferenceMaterial(&prompt)
	b.writeQuestion(&prompt)

	return prompt.String()
}

func (b *TutorBuilder) writeRole(prompt *strings.Builder) {
	prompt.WriteString("You are an AI tutor built to assist students studying the book titled '")
	prompt.WriteString(b.bookTitle)
	prompt.WriteString("'.\n\n")
}

func (b *TutorBuilder) writeRules(prompt *strings.Builder) {
	prompt.WriteString(constant.TutorFormattingRules)
	prompt.WriteString("\n\n")
}

func (b *TutorBuilder) writeReferenceMaterial(prompt *strings.Builder) {
	prompt.WriteString("----------------------------------------\n")
	prompt.WriteString("Book Title: ")
	prompt.WriteString(b.bookTitle)
	prompt.WriteString("\n\n")
	prompt.WriteString("<reference_material>\n")
	prompt.WriteString(b.context)
	prompt.WriteString("\n</reference_material>\n\n")
}

func (b *TutorBuilder) writeQuestion(prompt *strings.Builder) {
	prompt.WriteString("<user_question>\n")
	prompt.WriteString(b.question)
	prompt.WriteString("\n</user_question>\n\n")
	prompt.WriteString("Strictly answer this question, using the reference material only when clearly needed:")
}
