package file

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/shengyf2/sqliteredis/lib/kvvfs"
	"github.com/shengyf2/sqliteredis/lib/store"
	"github.com/shengyf2/sqliteredis/lib/store/lstore"
	"github.com/shengyf2/sqliteredis/lib/vfs"
	"github.com/shengyf2/sqliteredis/lib/vfs/osvfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noWait = BusyPolicy{Attempts: 1}

func newLayer(t *testing.T) (vfs.IVFS, store.IStore) {
	t.Helper()
	backing := lstore.NewLocalStore()
	t.Cleanup(func() { _ = backing.Close() })

	v, err := kvvfs.New(osvfs.New(), kvvfs.Config{
		Dialer:       store.SharedDialer(backing),
		BlockSize:    512,
		LeaseTimeout: time.Minute,
	})
	require.NoError(t, err)
	return v, backing
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func TestPutGet(t *testing.T) {
	v, _ := newLayer(t)
	data := pattern(20000)

	n, err := Put(v, bytes.NewReader(data), "app.db", noWait)
	require.NoError(t, err)
	assert.EqualValues(t, len(data), n)

	var out bytes.Buffer
	n, err = Get(v, "app.db", &out, noWait)
	require.NoError(t, err)
	assert.EqualValues(t, len(data), n)
	assert.Equal(t, data, out.Bytes())
}

func TestPutShrinksExistingFile(t *testing.T) {
	v, backing := newLayer(t)

	_, err := Put(v, bytes.NewReader(pattern(5000)), "app.db", noWait)
	require.NoError(t, err)
	_, err = Put(v, bytes.NewReader([]byte("small")), "app.db", noWait)
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = Get(v, "app.db", &out, noWait)
	require.NoError(t, err)
	assert.Equal(t, "small", out.String())

	// blocks past the new size are gone
	has, err := backing.Has("app.db:1")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestGetMissing(t *testing.T) {
	v, _ := newLayer(t)
	_, err := Get(v, "missing.db", &bytes.Buffer{}, noWait)
	assert.Equal(t, vfs.CANTOPEN, vfs.CodeOf(err))
}

func TestTruncate(t *testing.T) {
	v, _ := newLayer(t)
	_, err := Put(v, bytes.NewReader(pattern(3000)), "app.db", noWait)
	require.NoError(t, err)

	require.NoError(t, Truncate(v, "app.db", 1000, noWait))
	var out bytes.Buffer
	_, err = Get(v, "app.db", &out, noWait)
	require.NoError(t, err)
	assert.Equal(t, pattern(1000), out.Bytes())

	require.NoError(t, Truncate(v, "app.db", 1500, noWait))
	out.Reset()
	_, err = Get(v, "app.db", &out, noWait)
	require.NoError(t, err)
	assert.Equal(t, append(pattern(1000), make([]byte, 500)...), out.Bytes())

	assert.Equal(t, vfs.CANTOPEN, vfs.CodeOf(Truncate(v, "missing.db", 0, noWait)))
}

func TestTruncateTooLarge(t *testing.T) {
	v, _ := newLayer(t)
	_, err := Put(v, bytes.NewReader(pattern(3000)), "app.db", noWait)
	require.NoError(t, err)

	err = Truncate(v, "app.db", math.MaxInt64, noWait)
	assert.Equal(t, vfs.FULL, vfs.CodeOf(err))

	var out bytes.Buffer
	_, err = Get(v, "app.db", &out, noWait)
	require.NoError(t, err)
	assert.Equal(t, pattern(3000), out.Bytes())
}

func TestPutBusy(t *testing.T) {
	v, _ := newLayer(t)
	_, err := Put(v, bytes.NewReader(pattern(100)), "app.db", noWait)
	require.NoError(t, err)

	reader, _, err := v.Open("app.db", readFlags)
	require.NoError(t, err)
	require.NoError(t, reader.Lock(vfs.LockShared))

	_, err = Put(v, bytes.NewReader(pattern(10)), "app.db", BusyPolicy{Attempts: 3, Delay: time.Millisecond})
	assert.True(t, vfs.IsBusy(err), "got %v", err)

	// releasing the reader lets the next writer through
	require.NoError(t, reader.Unlock(vfs.LockNone))
	require.NoError(t, reader.Close())
	_, err = Put(v, bytes.NewReader(pattern(10)), "app.db", noWait)
	require.NoError(t, err)
}
