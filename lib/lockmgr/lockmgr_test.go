package lockmgr

import (
	"errors"
	"testing"
	"time"

	"github.com/shengyf2/sqliteredis/lib/store/lstore"
	"github.com/shengyf2/sqliteredis/lib/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	s := lstore.NewLocalStore()
	a := NewLockManager(s)
	b := NewLockManager(s)

	ok, owner, err := a.AcquireLock("db:lock:guard", 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, owner, 16)

	ok, _, err = b.AcquireLock("db:lock:guard", 0)
	require.NoError(t, err)
	assert.False(t, ok, "lock is held by a")

	released, err := b.ReleaseLock("db:lock:guard", []byte("not-the-owner"))
	require.NoError(t, err)
	assert.False(t, released)

	released, err = a.ReleaseLock("db:lock:guard", owner)
	require.NoError(t, err)
	assert.True(t, released)

	// releasing a missing lock is fine
	released, err = a.ReleaseLock("db:lock:guard", owner)
	require.NoError(t, err)
	assert.True(t, released)

	ok, _, _ = b.AcquireLock("db:lock:guard", 0)
	assert.True(t, ok)
}

func TestLockExpires(t *testing.T) {
	clock := storetest.NewFakeClock(time.Unix(0, 0))
	s := lstore.NewLocalStoreWithClock(clock.Now)
	mgr := NewLockManager(s)

	ok, _, _ := mgr.AcquireLock("k", 5*time.Second)
	require.True(t, ok)

	clock.Advance(4 * time.Second)
	ok, _, _ = mgr.AcquireLock("k", 5*time.Second)
	assert.False(t, ok)

	clock.Advance(time.Second)
	ok, _, _ = mgr.AcquireLock("k", 5*time.Second)
	assert.True(t, ok, "crashed owner's lock must expire")
}

func TestStoreFailure(t *testing.T) {
	fs := storetest.NewFaultStore(lstore.NewLocalStore())
	boom := errors.New("boom")
	fs.FailOn(storetest.OpSetIfUnset, nil, boom)

	ok, owner, err := NewLockManager(fs).AcquireLock("k", 0)
	assert.ErrorIs(t, err, boom)
	assert.False(t, ok)
	assert.Nil(t, owner)
}
