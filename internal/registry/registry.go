// Package registry manages the durable phone number → subscription mapping.
package registry

import (
	"context"
	"errors"

	"github.com/studyping/studyping/internal/domain"
)

// Registry errors.
var (
	// ErrDuplicateSubscription is returned by Create when any record,
	// active or inactive, already exists for the phone number. An inactive
	// record blocks re-subscription until it is deleted.
	ErrDuplicateSubscription = errors.New("subscription already exists for this phone number")

	// ErrNotFound is returned when no record exists for the phone number.
	ErrNotFound = errors.New("subscription not found")
)

// CreateInput holds the fields for a new subscription.
type CreateInput struct {
	PhoneNumber   string
	APIKey        string
	CanvasBaseURL string
	DaysAhead     int
}

// Repository is the subscription registry contract. Phone numbers are
// matched by exact string equality in every operation.
type Repository interface {
	// Create stores a new active subscription, failing with
	// ErrDuplicateSubscription when the phone number has any record.
	Create(ctx context.Context, input CreateInput) (*domain.Subscription, error)

	// Get returns the record for the phone number, or ErrNotFound.
	Get(ctx context.Context, phone string) (*domain.Subscription, error)

	// GetActive returns all records with IsActive set.
	GetActive(ctx context.Context) ([]domain.Subscription, error)

	// Deactivate flips IsActive off, keeping the record. ErrNotFound when
	// the phone number has no record.
	Deactivate(ctx context.Context, phone string) error

	// Delete removes the record entirely. ErrNotFound when absent.
	Delete(ctx context.Context, phone string) error
}
