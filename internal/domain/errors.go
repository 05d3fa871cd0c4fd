package domain

import "fmt"

// UpstreamKind tags which external collaborator an UpstreamError came from.
// Callers select user-facing messages by switching on the kind, never by
// inspecting message text.
type UpstreamKind string

// Upstream collaborator kinds.
const (
	UpstreamCanvas UpstreamKind = "canvas"
	UpstreamLLM    UpstreamKind = "llm"
	UpstreamSMS    UpstreamKind = "sms"
)

// UpstreamError reports a collaborator failure. Transport failures and
// non-2xx responses both end up here; Status is zero for transport errors.
// No upstream call is ever retried.
type UpstreamError struct {
	Kind    UpstreamKind
	Status  int
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s error %d: %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
