package bstore

import (
	"testing"

	"github.com/shengyf2/sqliteredis/lib/store"
	"github.com/shengyf2/sqliteredis/lib/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConformance(t *testing.T) {
	storetest.RunIStoreTests(t, "BadgerStore", func(t *testing.T) (store.IStore, storetest.Advance) {
		s, err := Open(Options{InMemory: true})
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s, nil
	})
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(Options{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, s.Set("db:meta", []byte("meta")))
	require.NoError(t, s.Close())

	s, err = Open(Options{Dir: dir})
	require.NoError(t, err)
	defer s.Close()

	v, ok, err := s.Get("db:meta")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "meta", string(v))
}
