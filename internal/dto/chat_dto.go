package dto

import "time"

type AskRequest struct {
	Question string `json:"question" form:"question" validate:"required,max=4000"`
}

type TurnResponse struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type AskResponse struct {
	BookId   string        `json:"book_id"`
	Turn     *TurnResponse `json:"turn"`
	Degraded bool          `json:"degraded"`
}

type TranscriptResponse struct {
	Book  *BookResponse   `json:"book"`
	Turns []*TurnResponse `json:"turns"`
}
