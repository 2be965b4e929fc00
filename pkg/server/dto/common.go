package dto

import "errors"

// Validation errors
var (
	ErrEmptyPrompt    = errors.New("prompt cannot be empty")
	ErrEmptyQuery     = errors.New("query cannot be empty")
	ErrPromptTooLong  = errors.New("prompt exceeds maximum length (64KB)")
	ErrTooManyParams  = errors.New("params count exceeds maximum (100)")
	ErrNegativeTopK   = errors.New("top_k cannot be negative")
	ErrTopKTooLarge   = errors.New("top_k exceeds maximum (1000)")
	ErrNegativeWeight = errors.New("weights cannot be negative")
	ErrTooManyWeights = errors.New("weights count exceeds maximum (100)")
)

// MaxFieldLengths defines maximum lengths for fields to prevent abuse
const (
	MaxPromptLength = 64 * 1024
	MaxParamCount   = 100
	MaxTopK         = 1000
	MaxWeightCount  = 100
)

// Result represents a generic API result
type Result struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
