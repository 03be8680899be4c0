package dto

import "time"

type ChatRequest struct {
	SessionID *string `json:"session_id"`
	UserID    string  `json:"user_id" validate:"required"`
	Message   string  `json:"message" validate:"required,min=1,max=2000"`
}

type ChatResponse struct {
	Reply     string         `json:"reply"`
	Step      string         `json:"step,omitempty"`
	Decision  string         `json:"decision,omitempty"`
	LoanID    string         `json:"loan_id,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
	SessionID string         `json:"session_id"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type HistoryResponse struct {
	SessionID string        `json:"session_id"`
	History   []ChatMessage `json:"history"`
	Count     int           `json:"count"`
}

type SessionInfo struct {
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	CurrentStep  string    `json:"current_step"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
