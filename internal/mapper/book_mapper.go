package mapper

import (
	"studymate-be/internal/dto"
	"studymate-be/pkg/store"

	"github.com/microcosm-cc/bluemonday"
)

// BookMapper converts session records into response DTOs. Model output is HTML, so every
// answer leaving the API goes through the UGC policy first.
type BookMapper struct {
	policy *bluemonday.Policy
}

func NewBookMapper() *BookMapper {
	return &BookMapper{
		policy: bluemonday.UGCPolicy(),
	}
}

func (m *BookMapper) SanitizeHTML(s string) string {
	return m.policy.Sanitize(s)
}

func (m *BookMapper) BookToResponse(b *store.BookRecord, currentID *string) *dto.BookResponse {
	if b == nil {
		return nil
	}
	return &dto.BookResponse{
		Id:           b.ID,
		Title:        b.OriginalName,
		UploadTime:   b.UploadTime,
		LastAccessed: b.LastAccessed,
		TurnCount:    len(b.ChatHistory),
		TextLength:   len([]rune(b.ExtractedText)),
		IsCurrent:    currentID != nil && *currentID == b.ID,
	}
}

func (m *BookMapper) TurnToResponse(t store.Turn) *dto.TurnResponse {
	return &dto.TurnResponse{
		Question:  t.Question,
		Answer:    m.SanitizeHTML(t.Answer),
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
	}
}

func (m *BookMapper) TranscriptToResponse(b *store.BookRecord, currentID *string) *dto.TranscriptResponse {
	turns := make([]*dto.TurnResponse, 0, len(b.ChatHistory))
	for _, t := range b.ChatHistory {
		turns = append(turns, m.TurnToResponse(t))
	}
	return &dto.TranscriptResponse{
		Book:  m.BookToResponse(b, currentID),
		Turns: turns,
	}
}

func (m *BookMapper) ListToResponse(books []*store.BookRecord, s *store.Session) *dto.BookListResponse {
	out := &dto.BookListResponse{
		CurrentBookId: s.CurrentBook,
		Books:         make([]*dto.BookResponse, 0, len(books)),
		RecentBooks:   append([]string{}, s.RecentBooks...),
	}
	for _, b := range books {
		out.Books = append(out.Books, m.BookToResponse(b, s.CurrentBook))
	}
	return out
}
