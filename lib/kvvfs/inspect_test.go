package kvvfs

import (
	"testing"

	"github.com/shengyf2/sqliteredis/lib/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStat(t *testing.T) {
	env := newTestEnv(t)
	a := env.open(t, "db")
	b := env.open(t, "db")
	_, err := a.WriteAt(pattern(0, 1000), 0)
	require.NoError(t, err)

	lockTo(t, a, vfs.LockShared, vfs.LockReserved)
	lockTo(t, b, vfs.LockShared)

	info, err := Stat(env.backing, "db", testLease, env.clock.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1000, info.Meta.Size)
	assert.EqualValues(t, 2, info.Meta.HighWater)
	assert.Equal(t, testBlockSize, info.Meta.BlockSize)
	assert.Len(t, info.Locks["shared"], 2)
	require.Len(t, info.Locks["reserved"], 1)
	assert.Equal(t, a.locks.holder, info.Locks["reserved"][0].ID)
	assert.True(t, info.Locks["reserved"][0].Live)
	assert.False(t, info.Guarded)

	env.clock.Advance(testLease)
	info, err = Stat(env.backing, "db", testLease, env.clock.Now())
	require.NoError(t, err)
	assert.False(t, info.Locks["shared"][0].Live)
}
