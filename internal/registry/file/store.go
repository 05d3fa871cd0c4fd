// Package file implements the subscription registry over a single JSON
// document. Every mutation reads and rewrites the whole collection; a
// process-wide mutex serializes writers so concurrent mutations cannot
// lose updates. Suitable for small subscriber counts only.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studyping/studyping/internal/domain"
	"github.com/studyping/studyping/internal/registry"
)

// document is the on-disk shape.
type document struct {
	Subscriptions []domain.Subscription `json:"subscriptions"`
}

// Store is a file-backed registry.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store persisting to path. The file is created on
// first mutation; a missing file reads as an empty collection.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Create implements registry.Repository.
func (s *Store) Create(_ context.Context, input registry.CreateInput) (*domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	for _, sub := range doc.Subscriptions {
		if sub.PhoneNumber == input.PhoneNumber {
			return nil, registry.ErrDuplicateSubscription
		}
	}

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
		CreatedAt:     time.Now().UTC(),
	}
	doc.Subscriptions = append(doc.Subscriptions, sub)

	if err := s.save(doc); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Get implements registry.Repository.
func (s *Store) Get(_ context.Context, phone string) (*domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	for _, sub := range doc.Subscriptions {
		if sub.PhoneNumber == phone {
			found := sub
			return &found, nil
		}
	}
	return nil, registry.ErrNotFound
}

// GetActive implements registry.Repository.
func (s *Store) GetActive(_ context.Context) ([]domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	active := make([]domain.Subscription, 0, len(doc.Subscriptions))
	for _, sub := range doc.Subscriptions {
		if sub.IsActive {
			active = append(active, sub)
		}
	}
	return active, nil
}

// Deactivate implements registry.Repository.
func (s *Store) Deactivate(_ context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	for i := range doc.Subscriptions {
		if doc.Subscriptions[i].PhoneNumber == phone {
			doc.Subscriptions[i].IsActive = false
			return s.save(doc)
		}
	}
	return registry.ErrNotFound
}

// Delete implements registry.Repository.
func (s *Store) Delete(_ context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	for i := range doc.Subscriptions {
		if doc.Subscriptions[i].PhoneNumber == phone {
			doc.Subscriptions = append(doc.Subscriptions[:i], doc.Subscriptions[i+1:]...)
			return s.save(doc)
		}
	}
	return registry.ErrNotFound
}

func (s *Store) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &document{}, nil
		}
		return nil, fmt.Errorf("read registry file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse registry file: %w", err)
	}
	return &doc, nil
}

// save writes the whole collection atomically via a temp file rename.
func (s *Store) save(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".subscriptions-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write registry file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close registry file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace registry file: %w", err)
	}
	return nil
}
