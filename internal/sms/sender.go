// Package sms delivers messages through the SMS provider and handles its
// inbound reply webhook.
package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/studyping/studyping/internal/domain"
)

const defaultTimeout = 10 * time.Second

// Config holds sender configuration.
type Config struct {
	BaseURL string
	APIKey  string
	// Sender is the optional display sender name attached to messages.
	Sender string
	// ReplyWebhookURL, when set, is registered with each message so the
	// provider posts inbound replies back to us.
	ReplyWebhookURL string
	// RateLimit caps outbound messages per second. Zero means unlimited,
	// which matches the default behavior toward the provider.
	RateLimit float64
	Timeout   time.Duration
}

// Sender delivers messages via the provider's form-encoded API.
type Sender struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSender creates an SMS sender.
func NewSender(config Config) *Sender {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}

	return &Sender{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// Configured reports whether the sender has a provider key.
func (s *Sender) Configured() bool {
	return s.config.APIKey != ""
}

// SendInput describes one outbound message. Phone is passed through to the
// provider without format validation; the HTTP boundary validates.
type SendInput struct {
	Phone   string
	Message string
	// Sender overrides the configured display sender when non-empty.
	Sender string
	// ReplyWebhookURL overrides the configured reply webhook when non-empty.
	ReplyWebhookURL string
}

// SendResult is the provider's answer for one delivery attempt.
type SendResult struct {
	Success        bool   `json:"success"`
	TextID         string `json:"textId,omitempty"`
	QuotaRemaining int    `json:"quotaRemaining"`
	Error          string `json:"error,omitempty"`
}

// textID normalizes the provider's message id, which arrives as either a
// JSON number or a JSON string depending on the endpoint.
type textID string

func (t *textID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = textID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("textId: %w", err)
	}
	*t = textID(n.String())
	return nil
}

type sendResponse struct {
	Success        bool   `json:"success"`
	TextID         textID `json:"textId"`
	QuotaRemaining int    `json:"quotaRemaining"`
	Error          string `json:"error"`
}

// Send makes a single delivery attempt. There are no retries: a transport
// failure, a non-2xx status, or a provider-reported failure all surface as
// an sms-kind upstream error alongside whatever result detail is available.
func (s *Sender) Send(ctx context.Context, input SendInput) (*SendResult, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	form := url.Values{
		"phone":   {input.Phone},
		"message": {input.Message},
		"key":     {s.config.APIKey},
	}
	if sender := firstNonEmpty(input.Sender, s.config.Sender); sender != "" {
		form.Set("sender", sender)
	}
	if webhook := firstNonEmpty(input.ReplyWebhookURL, s.config.ReplyWebhookURL); webhook != "" {
		form.Set("replyWebhookUrl", webhook)
	}

	endpoint := s.config.BaseURL + "/text"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		recordSend("transport_error")
		return nil, &domain.UpstreamError{Kind: domain.UpstreamSMS, Message: "request failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		recordSend("transport_error")
		return nil, &domain.UpstreamError{Kind: domain.UpstreamSMS, Message: "read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		recordSend("upstream_error")
		return nil, &domain.UpstreamError{
			Kind:    domain.UpstreamSMS,
			Status:  resp.StatusCode,
			Message: truncate(string(body), 200),
		}
	}

	var parsed sendResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		recordSend("decode_error")
		return nil, &domain.UpstreamError{Kind: domain.UpstreamSMS, Message: "decode response", Err: err}
	}

	result := &SendResult{
		Success:        parsed.Success,
		TextID:         string(parsed.TextID),
		QuotaRemaining: parsed.QuotaRemaining,
		Error:          parsed.Error,
	}

	if !parsed.Success {
		recordSend("rejected")
		msg := parsed.Error
		if msg == "" {
			msg = "delivery rejected"
		}
		return result, &domain.UpstreamError{Kind: domain.UpstreamSMS, Message: msg}
	}

	recordSend("success")
	return result, nil
}

// Quota asks the provider how many messages remain on the configured key.
// Used by the diagnostics endpoint only.
func (s *Sender) Quota(ctx context.Context) (int, error) {
	endpoint := fmt.Sprintf("%s/quota/%s", s.config.BaseURL, url.PathEscape(s.config.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, &domain.UpstreamError{Kind: domain.UpstreamSMS, Message: "request failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	var parsed struct {
		Success        bool `json:"success"`
		QuotaRemaining int  `json:"quotaRemaining"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, &domain.UpstreamError{Kind: domain.UpstreamSMS, Message: "decode response", Err: err}
	}
	if !parsed.Success {
		return 0, &domain.UpstreamError{Kind: domain.UpstreamSMS, Message: "quota check failed"}
	}
	return parsed.QuotaRemaining, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
