package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyping/studyping/internal/digest"
	"github.com/studyping/studyping/internal/domain"
	"github.com/studyping/studyping/internal/sms"
)

// mockAggregator implements UpcomingAggregator for testing.
type mockAggregator struct {
	result    *digest.Result
	err       error
	daysAhead int
}

func (m *mockAggregator) Upcoming(_ context.Context, _, _ string, daysAhead int) (*digest.Result, error) {
	m.daysAhead = daysAhead
	return m.result, m.err
}

// mockComposer implements MessageComposer for testing.
type mockComposer struct {
	text   string
	err    error
	digest string
}

func (m *mockComposer) Compose(_ context.Context, assignmentDigest string) (string, error) {
	m.digest = assignmentDigest
	return m.text, m.err
}

// mockSender implements MessageSender for testing.
type mockSender struct {
	result *sms.SendResult
	err    error
	input  sms.SendInput
	calls  int
}

func (m *mockSender) Send(_ context.Context, input sms.SendInput) (*sms.SendResult, error) {
	m.input = input
	m.calls++
	return m.result, m.err
}

func TestRunCycle_Success(t *testing.T) {
	due := time.Now().Add(48 * time.Hour)
	aggregator := &mockAggregator{result: &digest.Result{
		Assignments:    []domain.Assignment{{Name: "Essay", DueAt: &due}},
		CoursesChecked: 3,
	}}
	composer := &mockComposer{text: "Hey! Essay due soon!"}
	sender := &mockSender{result: &sms.SendResult{Success: true, TextID: "t-1"}}

	service := NewService(aggregator, composer, sender, true, true)

	result, err := service.RunCycle(context.Background(), CycleInput{
		PhoneNumber: "+15551234567",
		APIKey:      "canvas-key",
		DaysAhead:   5,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.AssignmentsFound)
	assert.Equal(t, 3, result.CoursesChecked)
	assert.Equal(t, "Hey! Essay due soon!", result.ReminderText)
	assert.True(t, result.SMSDelivered)
	assert.Equal(t, "t-1", result.TextID)

	assert.Equal(t, 5, aggregator.daysAhead)
	assert.Contains(t, composer.digest, "Essay")
	assert.Equal(t, "+15551234567", sender.input.Phone)
	assert.Equal(t, "Hey! Essay due soon!", sender.input.Message)
}

func TestRunCycle_EmptyAssignmentsStillDelivers(t *testing.T) {
	aggregator := &mockAggregator{result: &digest.Result{CoursesChecked: 2}}
	composer := &mockComposer{text: "Nothing due, enjoy the break!"}
	sender := &mockSender{result: &sms.SendResult{Success: true}}

	service := NewService(aggregator, composer, sender, true, true)

	result, err := service.RunCycle(context.Background(), CycleInput{PhoneNumber: "+15551234567", APIKey: "k"})
	require.NoError(t, err)

	assert.Equal(t, 0, result.AssignmentsFound)
	assert.Equal(t, digest.NoAssignmentsMessage, composer.digest)
	assert.Equal(t, 1, sender.calls)
}

func TestRunCycle_LLMNotConfigured(t *testing.T) {
	aggregator := &mockAggregator{}
	sender := &mockSender{}
	service := NewService(aggregator, &mockComposer{}, sender, false, true)

	_, err := service.RunCycle(context.Background(), CycleInput{PhoneNumber: "+15551234567", APIKey: "k"})
	assert.ErrorIs(t, err, ErrLLMNotConfigured)

	// Fail-fast: nothing downstream is touched.
	assert.Zero(t, aggregator.daysAhead)
	assert.Zero(t, sender.calls)
}

func TestRunCycle_SMSNotConfigured(t *testing.T) {
	service := NewService(&mockAggregator{}, &mockComposer{}, &mockSender{}, true, false)

	_, err := service.RunCycle(context.Background(), CycleInput{PhoneNumber: "+15551234567", APIKey: "k"})
	assert.ErrorIs(t, err, ErrSMSNotConfigured)
}

func TestRunCycle_AggregateFailureAborts(t *testing.T) {
	aggregator := &mockAggregator{err: &domain.UpstreamError{Kind: domain.UpstreamCanvas, Status: 401}}
	composer := &mockComposer{text: "never"}
	sender := &mockSender{}

	service := NewService(aggregator, composer, sender, true, true)

	_, err := service.RunCycle(context.Background(), CycleInput{PhoneNumber: "+15551234567", APIKey: "k"})
	require.Error(t, err)
	assert.Empty(t, composer.digest)
	assert.Zero(t, sender.calls)
}

func TestRunCycle_ComposeFailureSkipsSend(t *testing.T) {
	aggregator := &mockAggregator{result: &digest.Result{}}
	composer := &mockComposer{err: errors.New("generation failed")}
	sender := &mockSender{}

	service := NewService(aggregator, composer, sender, true, true)

	_, err := service.RunCycle(context.Background(), CycleInput{PhoneNumber: "+15551234567", APIKey: "k"})
	require.Error(t, err)
	assert.Zero(t, sender.calls)
}

func TestRunCycle_SendFailure(t *testing.T) {
	aggregator := &mockAggregator{result: &digest.Result{}}
	composer := &mockComposer{text: "msg"}
	sender := &mockSender{err: &domain.UpstreamError{Kind: domain.UpstreamSMS, Message: "rejected"}}

	service := NewService(aggregator, composer, sender, true, true)

	_, err := service.RunCycle(context.Background(), CycleInput{PhoneNumber: "+15551234567", APIKey: "k"})
	assert.Error(t, err)
}
