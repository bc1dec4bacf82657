package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBadgerStore(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		store := openTestStore(t)

		require.NoError(t, store.Put("out", "Emu", []string{"Australia", "Bird", "Emu"}))

		titles, ok, err := store.Get("out", "Emu")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []string{"Australia", "Bird", "Emu"}, titles)
	})

	t.Run("miss", func(t *testing.T) {
		store := openTestStore(t)

		_, ok, err := store.Get("out", "Nope")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("kinds are independent", func(t *testing.T) {
		store := openTestStore(t)

		require.NoError(t, store.Put("out", "Emu", []string{"Australia"}))
		require.NoError(t, store.Put("in", "Emu", []string{"Bird"}))

		out, ok, err := store.Get("out", "Emu")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []string{"Australia"}, out)

		in, ok, err := store.Get("in", "Emu")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []string{"Bird"}, in)
	})

	t.Run("empty list is a hit", func(t *testing.T) {
		store := openTestStore(t)

		require.NoError(t, store.Put("in", "Obscure Page", nil))

		titles, ok, err := store.Get("in", "Obscure Page")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, titles)
	})

	t.Run("closed store rejects operations", func(t *testing.T) {
		store, err := Open(Options{InMemory: true})
		require.NoError(t, err)
		require.NoError(t, store.Close())

		_, _, err = store.Get("out", "Emu")
		assert.ErrorIs(t, err, ErrStoreClosed)
		assert.ErrorIs(t, store.Put("out", "Emu", nil), ErrStoreClosed)

		// Double close is a no-op.
		assert.NoError(t, store.Close())
	})
}
