package osvfs

import (
	"path/filepath"
	"testing"

	"github.com/shengyf2/sqliteredis/lib/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openRW(t *testing.T, v vfs.IVFS, path string) vfs.IFile {
	t.Helper()
	f, out, err := v.Open(path, vfs.OpenReadWrite|vfs.OpenCreate|vfs.OpenMainDB)
	require.NoError(t, err)
	assert.True(t, out.Has(vfs.OpenReadWrite))
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestReadWriteShortRead(t *testing.T) {
	v := New()
	path := filepath.Join(t.TempDir(), "db")
	f := openRW(t, v, path)

	_, err := f.WriteAt([]byte("hello"), 2)
	require.NoError(t, err)

	size, err := f.FileSize()
	require.NoError(t, err)
	assert.EqualValues(t, 7, size)

	buf := []byte{9, 9, 9, 9, 9, 9, 9, 9, 9, 9}
	n, err := f.ReadAt(buf, 0)
	assert.Equal(t, 7, n)
	assert.Equal(t, vfs.IOERR_SHORT_READ, vfs.CodeOf(err))
	assert.Equal(t, []byte{0, 0, 'h', 'e', 'l', 'l', 'o', 0, 0, 0}, buf)

	require.NoError(t, f.Truncate(3))
	size, _ = f.FileSize()
	assert.EqualValues(t, 3, size)
}

func TestAccessDelete(t *testing.T) {
	v := New()
	path := filepath.Join(t.TempDir(), "db")

	ok, err := v.Access(path, vfs.AccessExists)
	require.NoError(t, err)
	assert.False(t, ok)

	f := openRW(t, v, path)
	require.NoError(t, f.Close())

	ok, _ = v.Access(path, vfs.AccessExists)
	assert.True(t, ok)

	require.NoError(t, v.Delete(path, true))
	assert.Equal(t, vfs.IOERR_DELETE_NOENT, vfs.CodeOf(v.Delete(path, false)))

	code, msg := v.GetLastError()
	assert.NotZero(t, code)
	assert.NotEmpty(t, msg)
}

func TestLocking(t *testing.T) {
	v := New()
	path := filepath.Join(t.TempDir(), "db")
	a := openRW(t, v, path)
	b := openRW(t, v, path)

	require.NoError(t, a.Lock(vfs.LockShared))
	require.NoError(t, b.Lock(vfs.LockShared))
	require.NoError(t, a.Lock(vfs.LockReserved))

	reserved, err := b.CheckReservedLock()
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.True(t, vfs.IsBusy(b.Lock(vfs.LockReserved)))

	// b still reads, so a can only get to pending
	assert.True(t, vfs.IsBusy(a.Lock(vfs.LockExclusive)))

	require.NoError(t, b.Unlock(vfs.LockNone))
	require.NoError(t, a.Lock(vfs.LockExclusive))

	var level int
	require.NoError(t, a.FileControl(vfs.FcntlLockState, &level))
	assert.Equal(t, int(vfs.LockExclusive), level)
	assert.Equal(t, vfs.NOTFOUND, vfs.CodeOf(a.FileControl(99, nil)))

	require.NoError(t, a.Unlock(vfs.LockShared))
	require.NoError(t, b.Lock(vfs.LockShared))
	require.NoError(t, a.Unlock(vfs.LockNone))

	assert.Equal(t, vfs.MISUSE, vfs.CodeOf(a.Lock(vfs.LockExclusive)))
}

func TestOSServices(t *testing.T) {
	v := New()

	buf := make([]byte, 16)
	assert.Equal(t, 16, v.Randomness(buf))

	// 2440587.5 is the julian day of the unix epoch
	assert.Greater(t, v.CurrentTime(), 2440587.5)
	assert.InDelta(t, float64(v.CurrentTimeInt64())/86400000.0, v.CurrentTime(), 0.001)

	_, err := v.DlOpen("libfoo.so")
	assert.Error(t, err)
	assert.Contains(t, v.DlError(), "libfoo.so")

	full, err := v.FullPathname("rel")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(full))
}
