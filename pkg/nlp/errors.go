package nlp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

var (
	ErrRateLimit     = errors.New("rate limit exceeded")
	ErrRefusal       = errors.New("the model refused the prompt")
	ErrEmptyResponse = errors.New("the model returned an empty response")
	ErrInvalidModel  = errors.New("invalid model specified")
)

// RateLimitError is returned when a provider answers 429. It matches
// ErrRateLimit under errors.Is.
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string {
	if e.Message == "" {
		return ErrRateLimit.Error()
	}
	return ErrRateLimit.Error() + ": " + e.Message
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimit }

// NewRateLimitError builds a RateLimitError with an optional detail message.
func NewRateLimitError(message ...string) *RateLimitError {
	return &RateLimitError{Message: strings.Join(message, " ")}
}

// GenerationServiceError reports a failed text generation call. Stage names
// the step of a chain that issued the call, e.g. "answer" or "cypher".
type GenerationServiceError struct {
	Stage string
	Err   error
}

func (e *GenerationServiceError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("generation service error: %v", e.Err)
	}
	return fmt.Sprintf("generation service error during %s: %v", e.Stage, e.Err)
}

func (e *GenerationServiceError) Unwrap() error { return e.Err }

// NewGenerationServiceError wraps err. A nil err yields nil.
func NewGenerationServiceError(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &GenerationServiceError{Stage: stage, Err: err}
}

// classifyError maps provider status codes onto the package errors.
func classifyError(err error) error {
	if statusCode(err) == http.StatusTooManyRequests {
		return &RateLimitError{Message: err.Error()}
	}
	return err
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	var coded interface{ HTTPStatusCode() int }
	if errors.As(err, &coded) {
		return coded.HTTPStatusCode()
	}
	return 0
}

// transientMarkers are matched against errors that carry no status code,
// typically from OpenAI-compatible gateways.
var transientMarkers = []string{
	"timeout",
	"connection reset",
	"connection refused",
	"temporary failure",
	"service unavailable",
	"bad gateway",
	"too many requests",
}

// Retryable reports whether a failed call may succeed when repeated.
// Cancellation and refusals are final; rate limits, 5xx responses and
// network timeouts are not.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, ErrRefusal), errors.Is(err, ErrInvalidModel):
		return false
	case errors.Is(err, ErrRateLimit):
		return true
	}

	if code := statusCode(err); code != 0 {
		return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
