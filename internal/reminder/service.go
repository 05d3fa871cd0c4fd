package reminder

import (
	"context"

	"github.com/studyping/studyping/internal/digest"
	"github.com/studyping/studyping/internal/pkg/ctxlog"
	"github.com/studyping/studyping/internal/sms"
)

// UpcomingAggregator is the slice of the digest aggregator the cycle needs.
type UpcomingAggregator interface {
	Upcoming(ctx context.Context, apiKey, baseURL string, daysAhead int) (*digest.Result, error)
}

// MessageSender is the slice of the SMS sender the cycle needs.
type MessageSender interface {
	Send(ctx context.Context, input sms.SendInput) (*sms.SendResult, error)
}

// MessageComposer generates the reminder text for a digest.
type MessageComposer interface {
	Compose(ctx context.Context, assignmentDigest string) (string, error)
}

// Service runs reminder cycles.
type Service struct {
	aggregator UpcomingAggregator
	composer   MessageComposer
	sender     MessageSender

	llmConfigured bool
	smsConfigured bool
}

// NewService creates a cycle service. The configured flags are captured at
// wiring time so a cycle fails fast on missing credentials instead of
// mid-pipeline.
func NewService(aggregator UpcomingAggregator, composer MessageComposer, sender MessageSender, llmConfigured, smsConfigured bool) *Service {
	return &Service{
		aggregator:    aggregator,
		composer:      composer,
		sender:        sender,
		llmConfigured: llmConfigured,
		smsConfigured: smsConfigured,
	}
}

// CycleInput identifies one subscriber cycle.
type CycleInput struct {
	PhoneNumber   string
	APIKey        string
	CanvasBaseURL string
	DaysAhead     int
}

// CycleResult summarizes one completed cycle.
type CycleResult struct {
	AssignmentsFound int    `json:"assignmentsFound"`
	CoursesChecked   int    `json:"coursesChecked"`
	ReminderText     string `json:"reminderText"`
	SMSDelivered     bool   `json:"smsDelivered"`
	TextID           string `json:"textId,omitempty"`
}

// RunCycle runs one fetch → aggregate → compose → dispatch sequence.
// Each step feeds the next; the first failure aborts the cycle. An empty
// assignment set is still composed and delivered; the digest formatter
// produces a complete "nothing due" message for it.
func (s *Service) RunCycle(ctx context.Context, input CycleInput) (*CycleResult, error) {
	if !s.llmConfigured {
		return nil, ErrLLMNotConfigured
	}
	if !s.smsConfigured {
		return nil, ErrSMSNotConfigured
	}

	logger := ctxlog.FromContext(ctx)

	result, err := s.aggregator.Upcoming(ctx, input.APIKey, input.CanvasBaseURL, input.DaysAhead)
	if err != nil {
		recordCycle("aggregate_failed")
		return nil, err
	}

	reminderText, err := s.composer.Compose(ctx, digest.Format(result.Assignments))
	if err != nil {
		recordCycle("compose_failed")
		return nil, err
	}

	sendResult, err := s.sender.Send(ctx, sms.SendInput{
		Phone:   input.PhoneNumber,
		Message: reminderText,
	})
	if err != nil {
		recordCycle("dispatch_failed")
		return nil, err
	}

	logger.Info("reminder cycle completed",
		"phone", input.PhoneNumber,
		"assignments_found", len(result.Assignments),
		"courses_checked", result.CoursesChecked,
		"text_id", sendResult.TextID,
	)
	recordCycle("success")

	return &CycleResult{
		AssignmentsFound: len(result.Assignments),
		CoursesChecked:   result.CoursesChecked,
		ReminderText:     reminderText,
		SMSDelivered:     sendResult.Success,
		TextID:           sendResult.TextID,
	}, nil
}
