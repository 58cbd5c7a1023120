package dto

// AskRequest models POST /api/chat input.
type AskRequest struct {
	Question string `json:"question" binding:"required"`
}
