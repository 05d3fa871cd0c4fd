package reminder

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/studyping/studyping/internal/canvas"
	"github.com/studyping/studyping/internal/domain"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "llm not configured",
			err:  ErrLLMNotConfigured,
			want: "Reminder service is not fully configured. Contact the administrator.",
		},
		{
			name: "sms not configured",
			err:  ErrSMSNotConfigured,
			want: "SMS delivery is not configured. Contact the administrator.",
		},
		{
			name: "missing canvas key",
			err:  canvas.ErrMissingAPIKey,
			want: "A Canvas API key is required.",
		},
		{
			name: "canvas upstream",
			err:  &domain.UpstreamError{Kind: domain.UpstreamCanvas, Status: 401, Message: "Invalid access token."},
			want: "Failed to fetch your courses from Canvas. Double-check your API key and Canvas URL.",
		},
		{
			name: "llm upstream",
			err:  &domain.UpstreamError{Kind: domain.UpstreamLLM, Message: "empty completion"},
			want: "Failed to generate your reminder. Please try again later.",
		},
		{
			name: "sms upstream",
			err:  &domain.UpstreamError{Kind: domain.UpstreamSMS, Message: "Out of quota"},
			want: "Failed to deliver the SMS. Please try again later.",
		},
		{
			name: "wrapped upstream",
			err:  fmt.Errorf("cycle: %w", &domain.UpstreamError{Kind: domain.UpstreamCanvas}),
			want: "Failed to fetch your courses from Canvas. Double-check your API key and Canvas URL.",
		},
		{
			name: "unknown error",
			err:  errors.New("boom"),
			want: "Something went wrong. Please try again later.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}

func TestStatusForError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusForError(ErrLLMNotConfigured))
	assert.Equal(t, http.StatusInternalServerError, StatusForError(ErrSMSNotConfigured))
	assert.Equal(t, http.StatusBadRequest, StatusForError(canvas.ErrMissingAPIKey))
	assert.Equal(t, http.StatusBadGateway, StatusForError(&domain.UpstreamError{Kind: domain.UpstreamSMS}))
	assert.Equal(t, http.StatusInternalServerError, StatusForError(errors.New("boom")))
}
