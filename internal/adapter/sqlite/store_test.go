package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashcoach/backend/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_GetMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "cards")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_SetGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "mode", []byte(`"STUDY"`)))

	got, err := s.Get(ctx, "mode")
	require.NoError(t, err)
	assert.Equal(t, []byte(`"STUDY"`), got)
}

func TestStore_SetOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "queue", []byte(`["a","b"]`)))
	require.NoError(t, s.Set(ctx, "queue", []byte(`["b"]`)))

	got, err := s.Get(ctx, "queue")
	require.NoError(t, err)
	assert.Equal(t, []byte(`["b"]`), got)
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "cards", []byte(`[]`)))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get(ctx, "cards")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), got)
	require.NoError(t, s2.Ping(ctx))
}
