package dto

const (
	StudyKindSummary    = "summary"
	StudyKindFlashcards = "flashcards"
	StudyKindQuiz       = "quiz"
)

// StudyResponse carries a derived artifact; these are generated on demand and never stored.
type StudyResponse struct {
	BookId   string `json:"book_id"`
	Title    string `json:"title"`
	Kind     string `json:"kind"`
	Content  string `json:"content"`
	Degraded bool   `json:"degraded"`
}
