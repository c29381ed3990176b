package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	Name string `json:"name"`
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "user")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, SaveJSON(ctx, s, "user", profile{Name: "ada"}))

	var got profile
	require.NoError(t, LoadJSON(ctx, s, "user", &got))
	assert.Equal(t, "ada", got.Name)

	require.NoError(t, s.Set(ctx, "user", []byte("{not json")))
	err = LoadJSON(ctx, s, "user", &got)
	assert.ErrorIs(t, err, ErrMalformed)

	require.NoError(t, s.Delete(ctx, "user"))
	require.NoError(t, s.Delete(ctx, "user"))
	_, err = s.Get(ctx, "user")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Set(ctx, "../escape", []byte("x")), ErrInvalidKey)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	exerciseStore(t, s)

	require.NoError(t, s.Set(context.Background(), "cart", []byte(`{"items":[]}`)))
	raw, err := os.ReadFile(filepath.Join(dir, "cart.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, string(raw))

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, SaveJSON(context.Background(), s, "auth_token", "tok"))

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	var tok string
	require.NoError(t, LoadJSON(context.Background(), reopened, "auth_token", &tok))
	assert.Equal(t, "tok", tok)
}

func TestMemoryStoreFailWrites(t *testing.T) {
	s := NewMemoryStore()
	s.FailWrites(true)
	assert.ErrorIs(t, s.Set(context.Background(), "cart", []byte("{}")), ErrWriteFailed)
	assert.False(t, s.Has("cart"))

	s.FailWrites(false)
	require.NoError(t, s.Set(context.Background(), "cart", []byte("{}")))
	assert.Equal(t, 1, s.Writes())
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("floppy", Options{})
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	s, err := NewRedisStore(addr, "storefront-test:")
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}
