package chat

import (
	"errors"
	"fmt"
	"net/http"
)

// Messages returned to callers. Upstream details never reach them.
const (
	msgMessageRequired = "Message is required"
	msgAPIKeyMissing   = "OpenRouter API key is not configured. Please add your API key in the portfolio settings."
	msgUpstreamFailed  = "Failed to get response from AI service"
	msgInvalidResponse = "Invalid response from AI service"
	msgInternal        = "Internal server error"
)

var (
	// ErrMessageRequired is returned when the visitor message is empty.
	ErrMessageRequired = errors.New("message required")
	// ErrAPIKeyMissing is returned when the portfolio has no OpenRouter key.
	ErrAPIKeyMissing = errors.New("credential not configured")
	// ErrInvalidResponse is returned when a successful upstream response
	// carries no completion message.
	ErrInvalidResponse = errors.New("invalid upstream response")
)

// UpstreamError reports a completion provider that answered with a
// non-success status.
type UpstreamError struct {
	Status int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("AI service failed with HTTP %d", e.Status)
}

// StatusCode maps a Reply error to the HTTP status returned to the caller.
func StatusCode(err error) int {
	var ue *UpstreamError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrMessageRequired), errors.Is(err, ErrAPIKeyMissing):
		return http.StatusBadRequest
	case errors.As(err, &ue):
		return ue.Status
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage maps a Reply error to the message shown to the caller.
func PublicMessage(err error) string {
	var ue *UpstreamError
	switch {
	case errors.Is(err, ErrMessageRequired):
		return msgMessageRequired
	case errors.Is(err, ErrAPIKeyMissing):
		return msgAPIKeyMissing
	case errors.As(err, &ue):
		return msgUpstreamFailed
	case errors.Is(err, ErrInvalidResponse):
		return msgInvalidResponse
	default:
		return msgInternal
	}
}
