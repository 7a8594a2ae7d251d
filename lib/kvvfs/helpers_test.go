package kvvfs

import (
	"errors"
	"testing"
	"time"

	"github.com/shengyf2/sqliteredis/lib/store"
	"github.com/shengyf2/sqliteredis/lib/store/lstore"
	"github.com/shengyf2/sqliteredis/lib/store/storetest"
	"github.com/shengyf2/sqliteredis/lib/vfs"
	"github.com/stretchr/testify/require"
)

const (
	testBlockSize = 512
	testLease     = 30 * time.Second
)

// testEnv is a kvvfs over an in-memory store with a fake clock, fault
// injection and dial counting.
type testEnv struct {
	clock   *storetest.FakeClock
	backing store.IStore
	faults  *storetest.FaultStore
	dialer  *storetest.CountingDialer
	parent  *recordingParent
	vfs     *kvVFS
}

func newTestEnv(t *testing.T, mods ...func(*Config)) *testEnv {
	t.Helper()
	clock := storetest.NewFakeClock(time.Unix(1700000000, 0))
	backing := lstore.NewLocalStoreWithClock(clock.Now)
	faults := storetest.NewFaultStore(backing)
	dialer := storetest.NewCountingDialer(faults.Dialer())

	cfg := Config{
		Dialer:       dialer.Dialer(),
		BlockSize:    testBlockSize,
		LeaseTimeout: testLease,
		Clock:        clock.Now,
	}
	for _, mod := range mods {
		mod(&cfg)
	}
	parent := &recordingParent{}
	v, err := New(parent, cfg)
	require.NoError(t, err)

	return &testEnv{
		clock:   clock,
		backing: backing,
		faults:  faults,
		dialer:  dialer,
		parent:  parent,
		vfs:     v.(*kvVFS),
	}
}

// open opens name read-write, creating it if needed. The file is closed
// when the test ends.
func (e *testEnv) open(t *testing.T, name string) *virtualFile {
	t.Helper()
	f, out, err := e.vfs.Open(name, vfs.OpenMainDB|vfs.OpenReadWrite|vfs.OpenCreate)
	require.NoError(t, err)
	require.Equal(t, vfs.OpenReadWrite, out)
	t.Cleanup(func() { _ = f.Close() })
	return f.(*virtualFile)
}

// has reports whether key exists in the backing store.
func (e *testEnv) has(t *testing.T, key string) bool {
	t.Helper()
	ok, err := e.backing.Has(key)
	require.NoError(t, err)
	return ok
}

// pattern returns n bytes derived from seed.
func pattern(seed byte, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i%251)
	}
	return b
}

// --------------------------------------------------------------------------
// recordingParent
// --------------------------------------------------------------------------

var errParentDl = errors.New("parent: no dl support")

// recordingParent is a default VFS that records which instance served each
// OS call and keeps state across calls.
type recordingParent struct {
	served  []*recordingParent
	dlError string
	slept   time.Duration
}

func (p *recordingParent) serve() { p.served = append(p.served, p) }

func (p *recordingParent) Name() string     { return "parent" }
func (p *recordingParent) MaxPathname() int { return 1024 }
func (p *recordingParent) Open(string, vfs.OpenFlag) (vfs.IFile, vfs.OpenFlag, error) {
	return nil, 0, vfs.NewError(vfs.CANTOPEN, "open", nil)
}
func (p *recordingParent) Delete(string, bool) error { return nil }
func (p *recordingParent) Access(string, vfs.AccessFlag) (bool, error) {
	return false, nil
}
func (p *recordingParent) FullPathname(name string) (string, error) { return "/" + name, nil }

func (p *recordingParent) DlOpen(filename string) (vfs.DlHandle, error) {
	p.serve()
	p.dlError = "cannot load " + filename
	return 0, errParentDl
}
func (p *recordingParent) DlError() string {
	p.serve()
	return p.dlError
}
func (p *recordingParent) DlSym(h vfs.DlHandle, symbol string) (uintptr, error) {
	p.serve()
	return uintptr(h) + uintptr(len(symbol)), nil
}
func (p *recordingParent) DlClose(vfs.DlHandle) error {
	p.serve()
	return errParentDl
}
func (p *recordingParent) Randomness(buf []byte) int {
	p.serve()
	for i := range buf {
		buf[i] = byte(i * 7)
	}
	return len(buf)
}
func (p *recordingParent) Sleep(d time.Duration) time.Duration {
	p.serve()
	p.slept += d
	return p.slept
}
func (p *recordingParent) CurrentTime() float64 {
	p.serve()
	return 2460000.25
}
func (p *recordingParent) CurrentTimeInt64() int64 {
	p.serve()
	return 212544000000000
}
func (p *recordingParent) GetLastError() (int, string) {
	p.serve()
	return 2, "no such file"
}
