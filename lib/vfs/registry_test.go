package vfs_test

import (
	"testing"

	"github.com/shengyf2/sqliteredis/lib/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// namedVFS only answers Name, the registry never calls anything else.
type namedVFS struct {
	vfs.IVFS
	name string
}

func (n *namedVFS) Name() string { return n.name }

func TestRegistryDefault(t *testing.T) {
	r := vfs.NewRegistry()
	assert.Nil(t, r.Find(""))

	a := &namedVFS{name: "a"}
	b := &namedVFS{name: "b"}
	c := &namedVFS{name: "c"}

	require.NoError(t, r.Register(a, false))
	assert.Same(t, a, r.Find(""), "first registration becomes default")

	require.NoError(t, r.Register(b, false))
	assert.Same(t, a, r.Find(""))
	assert.Same(t, b, r.Find("b"))

	require.NoError(t, r.Register(c, true))
	assert.Same(t, c, r.Find(""))
	assert.Equal(t, []string{"c", "a", "b"}, r.Names())

	require.NoError(t, r.Unregister(c))
	assert.Same(t, a, r.Find(""))
	assert.Nil(t, r.Find("c"))
	assert.ErrorIs(t, r.Unregister(c), vfs.ErrVFSNotFound)
}

func TestRegistryRejectsNameClash(t *testing.T) {
	r := vfs.NewRegistry()
	first := &namedVFS{name: "x"}
	require.NoError(t, r.Register(first, false))
	assert.ErrorIs(t, r.Register(&namedVFS{name: "x"}, true), vfs.ErrVFSExists)
	assert.ErrorIs(t, r.Register(&namedVFS{}, true), vfs.ErrInvalidVFS)

	// same instance may be re-registered to change the default
	other := &namedVFS{name: "y"}
	require.NoError(t, r.Register(other, true))
	require.NoError(t, r.Register(first, true))
	assert.Equal(t, []string{"x", "y"}, r.Names())
}
