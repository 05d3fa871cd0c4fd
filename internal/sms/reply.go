package sms

import (
	"context"
	"strings"

	"github.com/studyping/studyping/internal/pkg/ctxlog"
)

// FallbackReply is sent when answering an inbound question fails at either
// the generation or the delivery step. Every question gets some reply.
const FallbackReply = "Sorry, I couldn't process your question right now. Please try again in a bit!"

// AnswerGenerator produces a short answer to a student's question.
// Implemented by the reminder composer.
type AnswerGenerator interface {
	Answer(ctx context.Context, question string) (string, error)
}

// InboundMessage is one reply event delivered by the provider webhook.
type InboundMessage struct {
	TextID     string `json:"textId"`
	FromNumber string `json:"fromNumber"`
	Text       string `json:"text"`
}

// ReplyOutcome describes what the router did with an inbound message.
type ReplyOutcome struct {
	OptedOut  bool
	Answered  bool
	Delivered bool
}

// ReplyRouter classifies inbound messages and answers questions.
type ReplyRouter struct {
	generator AnswerGenerator
	sender    *Sender
}

// NewReplyRouter creates a reply router.
func NewReplyRouter(generator AnswerGenerator, sender *Sender) *ReplyRouter {
	return &ReplyRouter{generator: generator, sender: sender}
}

// Handle routes one inbound message. A message containing "stop" (any case)
// is an opt-out and short-circuits with no outbound send and no registry
// change. Anything else is treated as a question: answer it, or deliver the
// fixed fallback when generation or delivery of the answer fails.
func (r *ReplyRouter) Handle(ctx context.Context, msg InboundMessage) ReplyOutcome {
	logger := ctxlog.FromContext(ctx)

	if strings.Contains(strings.ToLower(msg.Text), "stop") {
		logger.Info("inbound opt-out", "from", msg.FromNumber, "text_id", msg.TextID)
		recordReply("opt_out")
		return ReplyOutcome{OptedOut: true}
	}

	reply, err := r.generator.Answer(ctx, msg.Text)
	if err != nil {
		logger.Warn("answer generation failed, using fallback",
			"from", msg.FromNumber,
			"error", err,
		)
		reply = FallbackReply
	}

	outcome := ReplyOutcome{Answered: true}
	fellBack := reply == FallbackReply

	if _, err := r.sender.Send(ctx, SendInput{Phone: msg.FromNumber, Message: reply}); err != nil {
		logger.Error("reply delivery failed", "from", msg.FromNumber, "error", err)

		if reply != FallbackReply {
			fellBack = true
			if _, err := r.sender.Send(ctx, SendInput{Phone: msg.FromNumber, Message: FallbackReply}); err != nil {
				logger.Error("fallback delivery failed", "from", msg.FromNumber, "error", err)
				recordReply("failed")
				return outcome
			}
		} else {
			recordReply("failed")
			return outcome
		}
	}

	outcome.Delivered = true
	if fellBack {
		recordReply("fallback")
	} else {
		recordReply("answered")
	}
	return outcome
}
