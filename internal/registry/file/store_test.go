package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyping/studyping/internal/registry"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "subscriptions.json")
	return NewStore(path), path
}

func TestCreate(t *testing.T) {
	store, _ := newTestStore(t)

	sub, err := store.Create(context.Background(), registry.CreateInput{
		PhoneNumber:   "+15551234567",
		APIKey:        "canvas-key",
		CanvasBaseURL: "https://canvas.example.edu",
		DaysAhead:     3,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, "+15551234567", sub.PhoneNumber)
	assert.Equal(t, "canvas-key", sub.APIKey)
	assert.Equal(t, 3, sub.DaysAhead)
	assert.True(t, sub.IsActive)
	assert.False(t, sub.CreatedAt.IsZero())
}

func TestCreate_DefaultsDaysAhead(t *testing.T) {
	store, _ := newTestStore(t)

	sub, err := store.Create(context.Background(), registry.CreateInput{
		PhoneNumber: "+15551234567",
		APIKey:      "k",
	})
	require.NoError(t, err)
	assert.Equal(t, 7, sub.DaysAhead)
}

func TestCreate_Duplicate(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, registry.CreateInput{PhoneNumber: "+15551234567", APIKey: "k"})
	require.NoError(t, err)

	_, err = store.Create(ctx, registry.CreateInput{PhoneNumber: "+15551234567", APIKey: "other"})
	assert.ErrorIs(t, err, registry.ErrDuplicateSubscription)
}

func TestCreate_DuplicateBlockedByInactiveRecord(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, registry.CreateInput{PhoneNumber: "+15551234567", APIKey: "k"})
	require.NoError(t, err)
	require.NoError(t, store.Deactivate(ctx, "+15551234567"))

	_, err = store.Create(ctx, registry.CreateInput{PhoneNumber: "+15551234567", APIKey: "k"})
	assert.ErrorIs(t, err, registry.ErrDuplicateSubscription)
}

func TestGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, registry.CreateInput{PhoneNumber: "+15551234567", APIKey: "k"})
	require.NoError(t, err)

	got, err := store.Get(ctx, "+15551234567")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = store.Get(ctx, "+15550000000")
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestGet_ExactStringMatch(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, registry.CreateInput{PhoneNumber: "+15551234567", APIKey: "k"})
	require.NoError(t, err)

	// Same number without the plus is a different key.
	_, err = store.Get(ctx, "15551234567")
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestGetActive(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, registry.CreateInput{PhoneNumber: "+15551111111", APIKey: "k"})
	require.NoError(t, err)
	_, err = store.Create(ctx, registry.CreateInput{PhoneNumber: "+15552222222", APIKey: "k"})
	require.NoError(t, err)
	require.NoError(t, store.Deactivate(ctx, "+15551111111"))

	active, err := store.GetActive(ctx)
	require.NoError(t, err)

	require.Len(t, active, 1)
	assert.Equal(t, "+15552222222", active[0].PhoneNumber)
}

func TestDeactivate_KeepsRecord(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, registry.CreateInput{PhoneNumber: "+15551234567", APIKey: "k"})
	require.NoError(t, err)
	require.NoError(t, store.Deactivate(ctx, "+15551234567"))

	got, err := store.Get(ctx, "+15551234567")
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestDeactivate_NotFound(t *testing.T) {
	store, path := newTestStore(t)

	err := store.Deactivate(context.Background(), "+15551234567")
	assert.ErrorIs(t, err, registry.ErrNotFound)

	// A failed mutation writes nothing.
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDelete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, registry.CreateInput{PhoneNumber: "+15551234567", APIKey: "k"})
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "+15551234567"))

	_, err = store.Get(ctx, "+15551234567")
	assert.ErrorIs(t, err, registry.ErrNotFound)

	// Number is free for re-subscription after deletion.
	_, err = store.Create(ctx, registry.CreateInput{PhoneNumber: "+15551234567", APIKey: "k"})
	assert.NoError(t, err)
}

func TestDelete_NotFound(t *testing.T) {
	store, _ := newTestStore(t)
	err := store.Delete(context.Background(), "+15551234567")
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subscriptions.json")
	ctx := context.Background()

	first := NewStore(path)
	created, err := first.Create(ctx, registry.CreateInput{
		PhoneNumber: "+15551234567",
		APIKey:      "canvas-key",
		DaysAhead:   5,
	})
	require.NoError(t, err)

	// A fresh store over the same file sees the record.
	second := NewStore(path)
	got, err := second.Get(ctx, "+15551234567")
	require.NoError(t, err)

	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "canvas-key", got.APIKey)
	assert.Equal(t, 5, got.DaysAhead)
	assert.Equal(t, created.CreatedAt.Unix(), got.CreatedAt.Unix())
}

func TestMissingFileReadsEmpty(t *testing.T) {
	store, _ := newTestStore(t)

	active, err := store.GetActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active)
}
