package kvvfs

import (
	"testing"
	"time"

	"github.com/shengyf2/sqliteredis/lib/store"
	"github.com/shengyf2/sqliteredis/lib/store/lstore"
	"github.com/shengyf2/sqliteredis/lib/vfs"
	"github.com/shengyf2/sqliteredis/lib/vfs/osvfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Dialer:       store.SharedDialer(lstore.NewLocalStore()),
		LeaseTimeout: time.Minute,
	}
}

func TestRegisterOnce(t *testing.T) {
	t.Cleanup(func() { _ = Unregister() })

	reg := vfs.NewRegistry()
	def := osvfs.New()
	require.NoError(t, reg.Register(def, true))

	v, err := Register(reg, testConfig())
	require.NoError(t, err)
	assert.Same(t, v, reg.Find(""), "kvvfs is the new default")
	assert.Same(t, def, v.(*kvVFS).Parent(), "previous default was captured")
	assert.Same(t, v, Registered())

	_, err = Register(reg, testConfig())
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	assert.Same(t, v, reg.Find(""), "second attempt changed nothing")

	require.NoError(t, Unregister())
	assert.Same(t, def, reg.Find(""))
	assert.Nil(t, reg.Find(DefaultName))
	assert.Nil(t, Registered())
	require.NoError(t, Unregister(), "unregistering twice is a no-op")

	// teardown allows a fresh registration
	_, err = Register(reg, testConfig())
	require.NoError(t, err)
}

func TestRegisterWithoutDefault(t *testing.T) {
	t.Cleanup(func() { _ = Unregister() })

	_, err := Register(vfs.NewRegistry(), testConfig())
	assert.Equal(t, vfs.NOLFS, vfs.CodeOf(err))
	assert.ErrorIs(t, err, ErrNoDefaultVFS)
	assert.Nil(t, Registered())
}

func TestRegisterInvalidConfig(t *testing.T) {
	t.Cleanup(func() { _ = Unregister() })

	reg := vfs.NewRegistry()
	require.NoError(t, reg.Register(osvfs.New(), true))

	cfg := testConfig()
	cfg.LeaseTimeout = 0
	_, err := Register(reg, cfg)
	assert.Error(t, err)
	assert.Equal(t, osvfs.Name, reg.Find("").Name())
	assert.Nil(t, Registered())
}
