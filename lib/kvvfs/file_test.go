package kvvfs

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/shengyf2/sqliteredis/lib/store/storetest"
	"github.com/shengyf2/sqliteredis/lib/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	ranges := []struct {
		name string
		off  int64
		n    int
	}{
		{"single byte", 0, 1},
		{"inside block", 17, 100},
		{"exact block", 512, 512},
		{"crossing one boundary", 500, 30},
		{"crossing many boundaries", 1000, 3000},
		{"mid to mid", 259, 1801},
		{"far offset", 1 << 20, 77},
	}
	for _, tt := range ranges {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			f := env.open(t, "db")

			data := make([]byte, tt.n)
			rand.New(rand.NewSource(tt.off)).Read(data)

			n, err := f.WriteAt(data, tt.off)
			require.NoError(t, err)
			require.Equal(t, tt.n, n)

			got := make([]byte, tt.n)
			n, err = f.ReadAt(got, tt.off)
			require.NoError(t, err)
			require.Equal(t, tt.n, n)
			assert.Equal(t, data, got)

			size, _ := f.FileSize()
			assert.Equal(t, tt.off+int64(tt.n), size)
		})
	}
}

func TestSparseZero(t *testing.T) {
	env := newTestEnv(t)
	f := env.open(t, "db")

	_, err := f.WriteAt([]byte("tail"), 5000)
	require.NoError(t, err)

	got := make([]byte, 5000)
	for i := range got {
		got[i] = 0xff
	}
	_, err = f.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 5000), got)

	// only the block holding offset 5000 was materialized
	assert.False(t, env.has(t, "db:0"))
	assert.False(t, env.has(t, "db:8"))
	assert.True(t, env.has(t, "db:9"))
}

func TestPartialWriteIsolation(t *testing.T) {
	env := newTestEnv(t)
	f := env.open(t, "db")

	a := pattern('A', testBlockSize)
	b := []byte(strings.Repeat("B", 100))
	_, err := f.WriteAt(a, 0)
	require.NoError(t, err)
	_, err = f.WriteAt(b, 200)
	require.NoError(t, err)

	got := make([]byte, testBlockSize)
	_, err = f.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, a[:200], got[:200])
	assert.Equal(t, b, got[200:300])
	assert.Equal(t, a[300:], got[300:])
}

func TestShortRead(t *testing.T) {
	env := newTestEnv(t)
	f := env.open(t, "db")
	_, err := f.WriteAt([]byte("hello"), 0)
	require.NoError(t, err)

	got := []byte("xxxxxxxx")
	n, err := f.ReadAt(got, 2)
	assert.Equal(t, 3, n)
	assert.Equal(t, vfs.IOERR_SHORT_READ, vfs.CodeOf(err))
	assert.Equal(t, []byte{'l', 'l', 'o', 0, 0, 0, 0, 0}, got)

	n, err = f.ReadAt(got, 100)
	assert.Equal(t, 0, n)
	assert.Equal(t, vfs.IOERR_SHORT_READ, vfs.CodeOf(err))
	assert.Equal(t, make([]byte, 8), got)
}

func TestTruncate(t *testing.T) {
	env := newTestEnv(t)
	f := env.open(t, "db")
	_, err := f.WriteAt(pattern(1, 3000), 0)
	require.NoError(t, err)
	require.True(t, env.has(t, "db:5"))

	// truncate needs RESERVED
	assert.Equal(t, vfs.MISUSE, vfs.CodeOf(f.Truncate(1000)))
	require.NoError(t, f.Lock(vfs.LockShared))
	require.NoError(t, f.Lock(vfs.LockReserved))

	require.NoError(t, f.Truncate(1000))
	size, _ := f.FileSize()
	assert.EqualValues(t, 1000, size)

	assert.True(t, env.has(t, "db:1"))
	for _, key := range []string{"db:2", "db:3", "db:4", "db:5"} {
		assert.False(t, env.has(t, key), key)
	}

	// bytes past the new end of block 1 were zeroed
	raw, ok, err := env.backing.Get("db:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, pattern(1, 3000)[512:1000], raw[:488])
	assert.Equal(t, make([]byte, 24), raw[488:])

	got := make([]byte, 10)
	_, err = f.ReadAt(got, 1000)
	assert.Equal(t, vfs.IOERR_SHORT_READ, vfs.CodeOf(err))

	// growing again exposes zeros, not the old bytes
	require.NoError(t, f.Truncate(2000))
	_, err = f.ReadAt(got, 1000)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 10), got)

	require.NoError(t, f.Truncate(0))
	assert.False(t, env.has(t, "db:0"))
	meta, _, err := loadMeta(env.backing, keys{prefix: "db"})
	require.NoError(t, err)
	assert.EqualValues(t, 0, meta.HighWater)
	assert.EqualValues(t, 0, meta.Size)
}

func TestReadOnlyHandle(t *testing.T) {
	env := newTestEnv(t)
	rw := env.open(t, "db")
	_, err := rw.WriteAt([]byte("data"), 0)
	require.NoError(t, err)

	f, out, err := env.vfs.Open("db", vfs.OpenMainDB|vfs.OpenReadOnly)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, vfs.OpenReadOnly, out)

	_, err = f.WriteAt([]byte("x"), 0)
	assert.Equal(t, vfs.READONLY, vfs.CodeOf(err))
	assert.Equal(t, vfs.READONLY, vfs.CodeOf(f.Truncate(0)))

	got := make([]byte, 4)
	_, err = f.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))
}

func TestProtocolErrorKeepsHandleUsable(t *testing.T) {
	env := newTestEnv(t)
	f := env.open(t, "db")
	_, err := f.WriteAt(pattern(3, 1024), 0)
	require.NoError(t, err)

	require.NoError(t, env.backing.Set("db:1", []byte("short")))
	_, err = f.ReadAt(make([]byte, 10), 600)
	assert.Equal(t, vfs.IOERR_READ, vfs.CodeOf(err))
	assert.ErrorIs(t, err, ErrProtocol)

	got := make([]byte, 10)
	_, err = f.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, pattern(3, 10), got)
}

func TestStoreFailures(t *testing.T) {
	env := newTestEnv(t)
	f := env.open(t, "db")
	boom := errors.New("connection reset")

	env.faults.FailOn(storetest.OpGet, func(key string) bool { return key == "db:0" }, boom)
	_, err := f.WriteAt([]byte("x"), 0)
	assert.Equal(t, vfs.IOERR_WRITE, vfs.CodeOf(err))
	assert.ErrorIs(t, err, boom)

	env.faults.FailOn(storetest.OpPing, nil, boom)
	assert.Equal(t, vfs.IOERR_FSYNC, vfs.CodeOf(f.Sync(vfs.SyncFull)))

	env.faults.Heal()
	_, err = f.WriteAt([]byte("x"), 0)
	require.NoError(t, err)
	require.NoError(t, f.Sync(vfs.SyncNormal))

	// a failed write leaves the tracked size untouched
	env.faults.FailOn(storetest.OpSet, func(key string) bool { return key == "db:3" }, boom)
	_, err = f.WriteAt(pattern(0, 10), 3*testBlockSize)
	assert.Equal(t, vfs.IOERR_WRITE, vfs.CodeOf(err))
	size, _ := f.FileSize()
	assert.EqualValues(t, 1, size)
}

func TestFullBlockWriteSkipsRead(t *testing.T) {
	env := newTestEnv(t)
	f := env.open(t, "db")

	before := env.faults.Calls(storetest.OpGet)
	_, err := f.WriteAt(pattern(0, 2*testBlockSize), testBlockSize)
	require.NoError(t, err)
	assert.Equal(t, before, env.faults.Calls(storetest.OpGet), "aligned full blocks are written blind")

	_, err = f.WriteAt([]byte("x"), 10)
	require.NoError(t, err)
	assert.Equal(t, before+1, env.faults.Calls(storetest.OpGet), "partial block is read first")
}

func TestSizeReloadedOnShared(t *testing.T) {
	env := newTestEnv(t)
	reader := env.open(t, "db")
	writer := env.open(t, "db")

	require.NoError(t, writer.Lock(vfs.LockShared))
	require.NoError(t, writer.Lock(vfs.LockExclusive))
	_, err := writer.WriteAt(pattern(0, 700), 0)
	require.NoError(t, err)
	require.NoError(t, writer.Unlock(vfs.LockNone))

	size, _ := reader.FileSize()
	assert.EqualValues(t, 0, size, "tracked size is not refreshed without a lock")

	require.NoError(t, reader.Lock(vfs.LockShared))
	size, _ = reader.FileSize()
	assert.EqualValues(t, 700, size)
}

func TestHandleInfo(t *testing.T) {
	env := newTestEnv(t)
	f := env.open(t, "db")

	assert.Equal(t, testBlockSize, f.SectorSize())
	caps := f.DeviceCharacteristics()
	assert.Equal(t, vfs.IocapAtomic512|vfs.IocapSafeAppend|vfs.IocapSequential|vfs.IocapPowersafeOverwrite, caps)
	assert.Zero(t, caps&vfs.IocapAtomic)
	assert.Zero(t, caps&vfs.IocapUndeletableWhenOpen)

	var level int
	require.NoError(t, f.FileControl(vfs.FcntlLockState, &level))
	assert.Equal(t, int(vfs.LockNone), level)
	require.NoError(t, f.Lock(vfs.LockShared))
	require.NoError(t, f.FileControl(vfs.FcntlLockState, &level))
	assert.Equal(t, int(vfs.LockShared), level)

	assert.Equal(t, vfs.NOTFOUND, vfs.CodeOf(f.FileControl(18, nil)))
	assert.Equal(t, vfs.MISUSE, vfs.CodeOf(f.FileControl(vfs.FcntlLockState, level)))
}

func TestClose(t *testing.T) {
	env := newTestEnv(t)
	f := env.open(t, "db")
	require.NoError(t, f.Lock(vfs.LockShared))
	require.NoError(t, f.Lock(vfs.LockExclusive))

	require.NoError(t, f.Close())
	require.NoError(t, f.Close(), "second close is a no-op")

	_, err := f.ReadAt(make([]byte, 1), 0)
	assert.Equal(t, vfs.MISUSE, vfs.CodeOf(err))

	// close released every marker
	for _, level := range []vfs.LockLevel{vfs.LockShared, vfs.LockReserved, vfs.LockPending, vfs.LockExclusive} {
		assert.False(t, env.has(t, keys{prefix: "db"}.lock(level)), level.String())
	}
	other := env.open(t, "db")
	require.NoError(t, other.Lock(vfs.LockShared))
	require.NoError(t, other.Lock(vfs.LockExclusive))
}

func TestWriteBeyondMaxSize(t *testing.T) {
	const maxBlocks = 64
	const maxSize = testBlockSize * maxBlocks

	tests := []struct {
		name string
		off  int64
		n    int
	}{
		{"offset near max int", math.MaxInt64 - 100, 1},
		{"end overflows", math.MaxInt64 - 2, 10},
		{"offset at max int", math.MaxInt64, 1},
		{"crossing the limit", maxSize - 1, 2},
		{"starting at the limit", maxSize, 1},
		{"far past the limit", maxSize * 1024, testBlockSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, func(c *Config) { c.MaxBlocks = maxBlocks })
			f := env.open(t, "db")
			_, err := f.WriteAt([]byte("head"), 0)
			require.NoError(t, err)

			n, err := f.WriteAt(make([]byte, tt.n), tt.off)
			assert.Equal(t, 0, n)
			assert.Equal(t, vfs.FULL, vfs.CodeOf(err))
			assert.ErrorIs(t, err, ErrFileTooLarge)

			size, _ := f.FileSize()
			assert.EqualValues(t, 4, size)
			meta, _, err := loadMeta(env.backing, keys{prefix: "db"})
			require.NoError(t, err)
			assert.EqualValues(t, 1, meta.HighWater)
			assert.False(t, env.has(t, fmt.Sprintf("db:%d", tt.off/testBlockSize)))

			require.NoError(t, f.Close())
			require.NoError(t, env.vfs.Delete("db", false))
			for i := int64(0); i <= maxBlocks; i++ {
				assert.False(t, env.has(t, fmt.Sprintf("db:%d", i)), "block %d", i)
			}
			assert.False(t, env.has(t, "db:meta"))
		})
	}
}

func TestWriteUpToMaxSize(t *testing.T) {
	const maxBlocks = 64
	env := newTestEnv(t, func(c *Config) { c.MaxBlocks = maxBlocks })
	f := env.open(t, "db")

	_, err := f.WriteAt([]byte{7}, testBlockSize*maxBlocks-1)
	require.NoError(t, err)
	size, _ := f.FileSize()
	assert.EqualValues(t, testBlockSize*maxBlocks, size)
	assert.True(t, env.has(t, fmt.Sprintf("db:%d", maxBlocks-1)))

	require.NoError(t, f.Close())
	require.NoError(t, env.vfs.Delete("db", false))
	assert.False(t, env.has(t, fmt.Sprintf("db:%d", maxBlocks-1)))
}

func TestTruncateBeyondMaxSize(t *testing.T) {
	const maxBlocks = 64
	env := newTestEnv(t, func(c *Config) { c.MaxBlocks = maxBlocks })
	f := env.open(t, "db")
	_, err := f.WriteAt(pattern(1, 3000), 0)
	require.NoError(t, err)
	lockTo(t, f, vfs.LockShared, vfs.LockReserved)

	for _, size := range []int64{math.MaxInt64, math.MaxInt64 - 1, testBlockSize*maxBlocks + 1} {
		err := f.Truncate(size)
		assert.Equal(t, vfs.FULL, vfs.CodeOf(err), "size %d", size)
		assert.ErrorIs(t, err, ErrFileTooLarge)
	}
	size, _ := f.FileSize()
	assert.EqualValues(t, 3000, size)
	assert.True(t, env.has(t, "db:5"))

	require.NoError(t, f.Truncate(testBlockSize*maxBlocks))
	size, _ = f.FileSize()
	assert.EqualValues(t, testBlockSize*maxBlocks, size)

	require.NoError(t, f.Truncate(0))
	require.NoError(t, f.Close())
	require.NoError(t, env.vfs.Delete("db", false))
	for i := 0; i <= maxBlocks; i++ {
		assert.False(t, env.has(t, fmt.Sprintf("db:%d", i)), "block %d", i)
	}
}
