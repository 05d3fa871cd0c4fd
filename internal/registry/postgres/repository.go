// Package postgres provides the PostgreSQL implementation of the
// subscription registry. The duplicate-detection contract is enforced by a
// unique index on phone_number.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studyping/studyping/internal/domain"
	"github.com/studyping/studyping/internal/registry"
)

// uniqueViolation is the SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

// Repository implements registry.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a PostgreSQL registry.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create implements registry.Repository.
func (r *Repository) Create(ctx context.Context, input registry.CreateInput) (*domain.Subscription, error) {
	daysAhead := input.DaysAhead
	if daysAhead <= 0 {
		daysAhead = domain.DefaultDaysAhead
	}

	sub := domain.Subscription{
		ID:            uuid.NewString(),
		PhoneNumber:   input.PhoneNumber,
		APIKey:        input.APIKey,
		CanvasBaseURL: input.CanvasBaseURL,
		DaysAhead:     daysAhead,
		IsActive:      true,
	}

	query := `
		INSERT INTO subscriptions (id, phone_number, api_key, canvas_base_url, days_ahead, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		sub.ID,
		sub.PhoneNumber,
		sub.APIKey,
		sub.CanvasBaseURL,
		sub.DaysAhead,
		sub.IsActive,
	).Scan(&sub.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, registry.ErrDuplicateSubscription
		}
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	return &sub, nil
}

// Get implements registry.Repository.
func (r *Repository) Get(ctx context.Context, phone string) (*domain.Subscription, error) {
	query := `
		SELECT id, phone_number, api_key, canvas_base_url, days_ahead, is_active, created_at
		FROM subscriptions
		WHERE phone_number = $1
	`
	var sub domain.Subscription
	err := r.db.QueryRow(ctx, query, phone).Scan(
		&sub.ID,
		&sub.PhoneNumber,
		&sub.APIKey,
		&sub.CanvasBaseURL,
		&sub.DaysAhead,
		&sub.IsActive,
		&sub.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, registry.ErrNotFound
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return &sub, nil
}

// GetActive implements registry.Repository.
func (r *Repository) GetActive(ctx context.Context) ([]domain.Subscription, error) {
	query := `
		SELECT id, phone_number, api_key, canvas_base_url, days_ahead, is_active, created_at
		FROM subscriptions
		WHERE is_active
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active subscriptions: %w", err)
	}
	defer rows.Close()

	subs := make([]domain.Subscription, 0)
	for rows.Next() {
		var sub domain.Subscription
		err := rows.Scan(
			&sub.ID,
			&sub.PhoneNumber,
			&sub.APIKey,
			&sub.CanvasBaseURL,
			&sub.DaysAhead,
			&sub.IsActive,
			&sub.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Deactivate implements registry.Repository.
func (r *Repository) Deactivate(ctx context.Context, phone string) error {
	result, err := r.db.Exec(ctx, `UPDATE subscriptions SET is_active = FALSE WHERE phone_number = $1`, phone)
	if err != nil {
		return fmt.Errorf("deactivate subscription: %w", err)
	}
	if result.RowsAffected() == 0 {
		return registry.ErrNotFound
	}
	return nil
}

// Delete implements registry.Repository.
func (r *Repository) Delete(ctx context.Context, phone string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM subscriptions WHERE phone_number = $1`, phone)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if result.RowsAffected() == 0 {
		return registry.ErrNotFound
	}
	return nil
}
