// Package reminder drives the fetch → aggregate → compose → dispatch cycle
// and exposes its HTTP endpoints.
package reminder

import (
	"context"
	"fmt"
	"strings"

	"github.com/studyping/studyping/internal/domain"
	"github.com/studyping/studyping/internal/llm"
)

// Generation bounds. The 160-character budget is a prompt instruction, not
// an enforced cap: an overlong completion is sent as-is.
const (
	reminderMaxTokens   = 100
	reminderTemperature = 0.8
	answerMaxTokens     = 60
	answerTemperature   = 0.7
)

const reminderPrompt = `You are a friendly, encouraging study buddy texting a college student.
Write a short, upbeat SMS reminding them about their upcoming assignments.
Keep it under 160 characters so it fits in a single text message. Reference
the assignments accurately by name and due date.

Their upcoming assignments:
%s`

const answerPrompt = `You are a helpful study assistant answering a student's question over SMS.
Answer briefly and clearly, in one or two sentences at most.

Question: %s`

// TextGenerator is the slice of the llm client the composer needs.
type TextGenerator interface {
	Generate(ctx context.Context, input llm.GenerateInput) (string, *llm.Usage, error)
}

// Composer turns an assignment digest into a friendly reminder message and
// inbound questions into short answers.
type Composer struct {
	generator TextGenerator
}

// NewComposer creates a composer over the given text generator.
func NewComposer(generator TextGenerator) *Composer {
	return &Composer{generator: generator}
}

// Compose generates the reminder message for a digest. Never retried.
func (c *Composer) Compose(ctx context.Context, assignmentDigest string) (string, error) {
	text, _, err := c.generator.Generate(ctx, llm.GenerateInput{
		Prompt:      fmt.Sprintf(reminderPrompt, assignmentDigest),
		MaxTokens:   reminderMaxTokens,
		Temperature: reminderTemperature,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Answer generates a short reply to a student's question.
func (c *Composer) Answer(ctx context.Context, question string) (string, error) {
	text, _, err := c.generator.Generate(ctx, llm.GenerateInput{
		Prompt:      fmt.Sprintf(answerPrompt, question),
		MaxTokens:   answerMaxTokens,
		Temperature: answerTemperature,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", &domain.UpstreamError{Kind: domain.UpstreamLLM, Message: "empty completion"}
	}
	return strings.TrimSpace(text), nil
}
