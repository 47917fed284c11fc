package store

import (
	"time"
)

// Session represents the per-browser state: every uploaded book and the active one
type Session struct {
	ID string `json:"id"`

	// Pointer into BookHistory; nil when no book is active
	CurrentBook *string `json:"current_book"`

	BookHistory map[string]*BookRecord `json:"book_history"`

	// Quick-access list, most recent first
	RecentBooks []string `json:"recent_books"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BookRecord is one uploaded document tracked within a session
type BookRecord struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"original_name"`
	UploadTime   time.Time `json:"upload_time"`
	LastAccessed time.Time `json:"last_accessed"`

	// Extracted once at upload; never mutated afterwards
	ExtractedText string `json:"extracted_text"`

	ChatHistory []Turn `json:"chat_history"`
}

// Turn is one question/answer exchange
type Turn struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Status    string    `json:"status"` // "ok" | "degraded"
	CreatedAt time.Time `json:"created_at"`
}

const (
	TurnStatusOK       = "ok"
	TurnStatusDegraded = "degraded"

	MaxRecentBooks = 10
)

// NewSession creates an empty session for the given browser id
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:          id,
		BookHistory: make(map[string]*BookRecord),
		RecentBooks: []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a deep copy so stores never hand out shared mutable state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := &Session{
		ID:          s.ID,
		BookHistory: make(map[string]*BookRecord, len(s.BookHistory)),
		RecentBooks: append([]string{}, s.RecentBooks...),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	if s.CurrentBook != nil {
		current := *s.CurrentBook
		out.CurrentBook = &current
	}
	for id, book := range s.BookHistory {
		copied := *book
		copied.ChatHistory = append([]Turn{}, book.ChatHistory...)
		out.BookHistory[id] = &copied
	}
	return out
}
