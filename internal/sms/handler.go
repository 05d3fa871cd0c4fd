package sms

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/studyping/studyping/internal/domain"
	"github.com/studyping/studyping/internal/pkg/ctxlog"
	"github.com/studyping/studyping/internal/pkg/httputil"
)

// Handler serves the provider webhook and its diagnostics endpoints.
type Handler struct {
	router *ReplyRouter
	sender *Sender
	secret string
}

// NewHandler creates an SMS webhook handler. secret is the shared webhook
// signing secret; empty disables verification entirely.
func NewHandler(router *ReplyRouter, sender *Sender, secret string) *Handler {
	return &Handler{router: router, sender: sender, secret: secret}
}

// RegisterRoutes registers webhook and diagnostics routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sms/webhook", h.Webhook)
	r.Get("/sms/webhook", h.WebhookStatus)
	r.Get("/sms/config", h.ConfigStatus)
	r.Get("/sms/test", h.ProviderTest)
}

// Webhook handles inbound reply deliveries from the provider.
//
// Deliveries carrying signature headers must verify and be fresh. When
// neither header is present the delivery is accepted unsigned; that is the
// documented fallback for deployments without signing configured.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.Fail(w, http.StatusBadRequest, "unable to read request body")
		return
	}

	signature := r.Header.Get(SignatureHeader)
	timestamp := r.Header.Get(TimestampHeader)

	if signature != "" || timestamp != "" {
		if !VerifySignature(h.secret, timestamp, signature, body) {
			ctxlog.FromContext(r.Context()).Warn("webhook signature mismatch")
			httputil.Fail(w, http.StatusForbidden, "invalid signature")
			return
		}
		if !TimestampFresh(timestamp, time.Now()) {
			ctxlog.FromContext(r.Context()).Warn("webhook timestamp outside window", "timestamp", timestamp)
			httputil.Fail(w, http.StatusForbidden, "stale timestamp")
			return
		}
	}

	var msg InboundMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		httputil.Fail(w, http.StatusBadRequest, "invalid json")
		return
	}
	if msg.FromNumber == "" {
		httputil.Fail(w, http.StatusBadRequest, "fromNumber is required")
		return
	}

	outcome := h.router.Handle(r.Context(), msg)

	switch {
	case outcome.OptedOut:
		httputil.OK(w, http.StatusOK, "User opted out", nil)
	case outcome.Delivered:
		httputil.OK(w, http.StatusOK, "Reply sent", nil)
	default:
		// The question was received but no reply could be delivered.
		// Collaborator failures never turn a webhook into a 5xx.
		httputil.OK(w, http.StatusOK, "Reply received", nil)
	}
}

// WebhookStatus confirms the webhook endpoint is reachable.
func (h *Handler) WebhookStatus(w http.ResponseWriter, _ *http.Request) {
	httputil.OK(w, http.StatusOK, "Webhook endpoint is live", nil)
}

// ConfigStatus reports which SMS settings are present, without their values.
func (h *Handler) ConfigStatus(w http.ResponseWriter, _ *http.Request) {
	httputil.OK(w, http.StatusOK, "", map[string]bool{
		"smsKeyConfigured":        h.sender.Configured(),
		"senderConfigured":        h.sender.config.Sender != "",
		"replyWebhookConfigured":  h.sender.config.ReplyWebhookURL != "",
		"webhookSecretConfigured": h.secret != "",
	})
}

// ProviderTest checks provider connectivity by reading the remaining quota.
func (h *Handler) ProviderTest(w http.ResponseWriter, r *http.Request) {
	quota, err := h.sender.Quota(r.Context())
	if err != nil {
		var upstream *domain.UpstreamError
		if errors.As(err, &upstream) {
			httputil.Fail(w, http.StatusBadGateway, "SMS provider unreachable")
			return
		}
		httputil.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}

	httputil.OK(w, http.StatusOK, "", map[string]int{"quotaRemaining": quota})
}
