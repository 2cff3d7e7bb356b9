package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetProfile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &Profile{
		ID:      "p-1",
		Name:    "warmup-01",
		GroupID: "g-1",
		OS:      "win",
		Status:  "created",
	}
	require.NoError(t, s.CreateProfile(ctx, p))
	assert.False(t, p.CreatedAt.IsZero())

	got, err := s.GetProfile(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "warmup-01", got.Name)
	assert.Equal(t, "g-1", got.GroupID)
	assert.Equal(t, "created", got.Status)
}

func TestGetProfile_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetProfile(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateProfile_DuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &Profile{ID: "p-1", Name: "first"}
	require.NoError(t, s.CreateProfile(ctx, p))
	assert.Error(t, s.CreateProfile(ctx, &Profile{ID: "p-1", Name: "second"}))
}

func TestListProfiles_Ordered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.CreateProfile(ctx, &Profile{ID: id, Name: "profile-" + id}))
	}

	profiles, err := s.ListProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 3)
	assert.Equal(t, "a", profiles[0].ID)
	assert.Equal(t, "c", profiles[2].ID)
}

func TestUpdateProfile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &Profile{ID: "p-1", Name: "before", Status: "created"}
	require.NoError(t, s.CreateProfile(ctx, p))

	p.Name = "after"
	p.Status = "farming"
	require.NoError(t, s.UpdateProfile(ctx, p))

	got, err := s.GetProfile(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "after", got.Name)
	assert.Equal(t, "farming", got.Status)
}

func TestUpdateProfile_NotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdateProfile(context.Background(), &Profile{ID: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteProfile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateProfile(ctx, &Profile{ID: "p-1", Name: "doomed"}))
	require.NoError(t, s.DeleteProfile(ctx, "p-1"))

	_, err := s.GetProfile(ctx, "p-1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.DeleteProfile(ctx, "p-1"), ErrNotFound)
}
