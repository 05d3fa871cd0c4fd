package sms

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyping/studyping/internal/domain"
)

func TestSend_FormFields(t *testing.T) {
	var gotForm url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/text", r.URL.Path)
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm

		_, _ = w.Write([]byte(`{"success": true, "textId": 12345, "quotaRemaining": 40}`))
	}))
	defer server.Close()

	sender := NewSender(Config{
		BaseURL:         server.URL,
		APIKey:          "textbelt-key",
		Sender:          "StudyPing",
		ReplyWebhookURL: "https://example.com/sms/webhook",
	})

	result, err := sender.Send(context.Background(), SendInput{
		Phone:   "+15551234567",
		Message: "PS4 due Monday!",
	})
	require.NoError(t, err)

	assert.Equal(t, "+15551234567", gotForm.Get("phone"))
	assert.Equal(t, "PS4 due Monday!", gotForm.Get("message"))
	assert.Equal(t, "textbelt-key", gotForm.Get("key"))
	assert.Equal(t, "StudyPing", gotForm.Get("sender"))
	assert.Equal(t, "https://example.com/sms/webhook", gotForm.Get("replyWebhookUrl"))

	assert.True(t, result.Success)
	assert.Equal(t, "12345", result.TextID)
	assert.Equal(t, 40, result.QuotaRemaining)
}

func TestSend_InputOverridesConfig(t *testing.T) {
	var gotForm url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		_, _ = w.Write([]byte(`{"success": true, "textId": "abc"}`))
	}))
	defer server.Close()

	sender := NewSender(Config{BaseURL: server.URL, APIKey: "k", Sender: "Default"})

	result, err := sender.Send(context.Background(), SendInput{
		Phone:   "+15551234567",
		Message: "hi",
		Sender:  "Override",
	})
	require.NoError(t, err)

	assert.Equal(t, "Override", gotForm.Get("sender"))
	assert.Empty(t, gotForm.Get("replyWebhookUrl"))
	assert.Equal(t, "abc", result.TextID)
}

func TestSend_NullTextID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success": true, "textId": null, "quotaRemaining": 10}`))
	}))
	defer server.Close()

	sender := NewSender(Config{BaseURL: server.URL, APIKey: "k"})

	result, err := sender.Send(context.Background(), SendInput{Phone: "+15551234567", Message: "hi"})
	require.NoError(t, err)
	assert.Empty(t, result.TextID)
	assert.Equal(t, 10, result.QuotaRemaining)
}

func TestSend_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success": false, "error": "Out of quota", "quotaRemaining": 0}`))
	}))
	defer server.Close()

	sender := NewSender(Config{BaseURL: server.URL, APIKey: "k"})

	result, err := sender.Send(context.Background(), SendInput{Phone: "+15551234567", Message: "hi"})
	require.Error(t, err)

	var upstream *domain.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, domain.UpstreamSMS, upstream.Kind)
	assert.Equal(t, "Out of quota", upstream.Message)

	// The partial result still comes back alongside the error.
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Equal(t, "Out of quota", result.Error)
}

func TestSend_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("maintenance"))
	}))
	defer server.Close()

	sender := NewSender(Config{BaseURL: server.URL, APIKey: "k"})

	_, err := sender.Send(context.Background(), SendInput{Phone: "+15551234567", Message: "hi"})
	require.Error(t, err)

	var upstream *domain.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusServiceUnavailable, upstream.Status)
}

func TestQuota(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quota/textbelt-key", r.URL.Path)
		_, _ = w.Write([]byte(`{"success": true, "quotaRemaining": 73}`))
	}))
	defer server.Close()

	sender := NewSender(Config{BaseURL: server.URL, APIKey: "textbelt-key"})

	quota, err := sender.Quota(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 73, quota)
}

func TestQuota_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success": false}`))
	}))
	defer server.Close()

	sender := NewSender(Config{BaseURL: server.URL, APIKey: "k"})

	_, err := sender.Quota(context.Background())
	require.Error(t, err)

	var upstream *domain.UpstreamError
	assert.True(t, errors.As(err, &upstream))
}

func TestConfigured(t *testing.T) {
	assert.False(t, NewSender(Config{}).Configured())
	assert.True(t, NewSender(Config{APIKey: "k"}).Configured())
}
