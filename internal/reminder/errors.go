package reminder

import (
	"errors"
	"net/http"

	"github.com/studyping/studyping/internal/canvas"
	"github.com/studyping/studyping/internal/domain"
)

// Configuration errors, checked before a cycle touches any collaborator.
var (
	ErrLLMNotConfigured = errors.New("text-generation api key is not configured")
	ErrSMSNotConfigured = errors.New("sms api key is not configured")
)

// UserMessage selects the user-facing message for a cycle failure by error
// kind. Exhaustive over the taxonomy; message text is never inspected.
func UserMessage(err error) string {
	var upstream *domain.UpstreamError

	switch {
	case errors.Is(err, ErrLLMNotConfigured):
		return "Reminder service is not fully configured. Contact the administrator."
	case errors.Is(err, ErrSMSNotConfigured):
		return "SMS delivery is not configured. Contact the administrator."
	case errors.Is(err, canvas.ErrMissingAPIKey):
		return "A Canvas API key is required."
	case errors.As(err, &upstream):
		switch upstream.Kind {
		case domain.UpstreamCanvas:
			return "Failed to fetch your courses from Canvas. Double-check your API key and Canvas URL."
		case domain.UpstreamLLM:
			return "Failed to generate your reminder. Please try again later."
		case domain.UpstreamSMS:
			return "Failed to deliver the SMS. Please try again later."
		}
	}
	return "Something went wrong. Please try again later."
}

// StatusForError maps a cycle failure to an HTTP status.
func StatusForError(err error) int {
	var upstream *domain.UpstreamError

	switch {
	case errors.Is(err, ErrLLMNotConfigured), errors.Is(err, ErrSMSNotConfigured):
		return http.StatusInternalServerError
	case errors.Is(err, canvas.ErrMissingAPIKey):
		return http.StatusBadRequest
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
