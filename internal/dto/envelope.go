package dto

// Envelope is the response shape every route of the loan API returns.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func OK[T any](data T) Envelope[T] { return Envelope[T]{Success: true, Data: &data} }

func Fail(errMsg string) Envelope[struct{}] { return Envelope[struct{}]{Success: false, Error: errMsg} }

// MessageResponse is the payload of routes that only acknowledge.
type MessageResponse struct {
	Message string `json:"message"`
}
