package dto

import "time"

type BookResponse struct {
	Id           string    `json:"id"`
	Title        string    `json:"title"`
	UploadTime   time.Time `json:"upload_time"`
	LastAccessed time.Time `json:"last_accessed"`
	TurnCount    int       `json:"turn_count"`
	TextLength   int       `json:"text_length"`
	IsCurrent    bool      `json:"is_current"`
}

type BookListResponse struct {
	CurrentBookId *string         `json:"current_book_id"`
	Books         []*BookResponse `json:"books"`
	RecentBooks   []string        `json:"recent_books"`
}

type ReconcileResponse struct {
	Status  string   `json:"status"`
	Removed []string `json:"removed"`
}
