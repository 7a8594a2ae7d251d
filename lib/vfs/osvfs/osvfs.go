// Package osvfs implements vfs.IVFS on top of the local file system. It is the
// default backend that wrapping layers capture and forward OS services to.
//
// Byte range locking is approximated with two advisory flock(2) locks per
// file: a shared/exclusive lock on the file itself for SHARED and EXCLUSIVE
// and an exclusive lock on a "<name>-lock" sidecar for RESERVED.
package osvfs

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/shengyf2/sqliteredis/lib/vfs"
)

// Name is the name the OS VFS registers under.
const Name = "os"

const (
	maxPathname = 4096
	// julianEpochMillis is the unix epoch expressed in milliseconds since the
	// Julian epoch (noon, November 24 4714 BC).
	julianEpochMillis = 210866760000000
	lockSuffix        = "-lock"
)

var Logger = logger.GetLogger("vfs")

var ErrDlUnsupported = errors.New("dynamic library loading is not supported")

type osVFS struct {
	mu      sync.Mutex
	lastErr error
	dlErr   string
}

// New creates the OS backed VFS.
func New() vfs.IVFS {
	return &osVFS{}
}

// record keeps err as the last OS error and returns it.
func (v *osVFS) record(err error) error {
	if err != nil {
		v.mu.Lock()
		v.lastErr = err
		v.mu.Unlock()
	}
	return err
}

// --------------------------------------------------------------------------
// Interface Methods (docu see vfs/interface.go)
// --------------------------------------------------------------------------

func (v *osVFS) Name() string { return Name }

func (v *osVFS) MaxPathname() int { return maxPathname }

func (v *osVFS) Open(name string, flags vfs.OpenFlag) (vfs.IFile, vfs.OpenFlag, error) {
	var (
		f   *os.File
		err error
	)

	deleteOnClose := flags.Has(vfs.OpenDeleteOnClose)
	if name == "" {
		// anonymous temp files are always read-write and removed on close
		f, err = os.CreateTemp("", "kvvfs-*")
		deleteOnClose = true
		flags = (flags &^ vfs.OpenReadOnly) | vfs.OpenReadWrite
	} else {
		mode := os.O_RDONLY
		if flags.Has(vfs.OpenReadWrite) {
			mode = os.O_RDWR
		}
		if flags.Has(vfs.OpenCreate) {
			mode |= os.O_CREATE
		}
		if flags.Has(vfs.OpenExclusive) {
			mode |= os.O_EXCL
		}
		f, err = os.OpenFile(name, mode, 0o644)
	}
	if err != nil {
		return nil, 0, vfs.NewError(vfs.CANTOPEN, "open", v.record(err))
	}

	path := f.Name()
	Logger.Debugf("opened %s (flags %#x)", path, uint32(flags))
	return &osFile{
		vfs:           v,
		f:             f,
		path:          path,
		fileLock:      flock.New(path),
		reservedLock:  flock.New(path + lockSuffix),
		deleteOnClose: deleteOnClose,
	}, flags, nil
}

func (v *osVFS) Delete(name string, syncDir bool) error {
	if err := os.Remove(name); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return vfs.NewError(vfs.IOERR_DELETE_NOENT, "delete", v.record(err))
		}
		return vfs.NewError(vfs.IOERR_DELETE, "delete", v.record(err))
	}
	_ = os.Remove(name + lockSuffix)

	if syncDir {
		dir, err := os.Open(filepath.Dir(name))
		if err != nil {
			return vfs.NewError(vfs.IOERR_DELETE, "delete", v.record(err))
		}
		defer dir.Close()
		if err := dir.Sync(); err != nil {
			return vfs.NewError(vfs.IOERR_DELETE, "delete", v.record(err))
		}
	}
	return nil
}

func (v *osVFS) Access(name string, flags vfs.AccessFlag) (bool, error) {
	info, err := os.Stat(name)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, vfs.NewError(vfs.IOERR_ACCESS, "access", v.record(err))
	}

	switch flags {
	case vfs.AccessReadWrite:
		return info.Mode().Perm()&0o200 != 0, nil
	case vfs.AccessRead:
		return info.Mode().Perm()&0o400 != 0, nil
	default:
		return true, nil
	}
}

func (v *osVFS) FullPathname(name string) (string, error) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return "", vfs.NewError(vfs.CANTOPEN, "fullpathname", v.record(err))
	}
	return abs, nil
}

func (v *osVFS) DlOpen(filename string) (vfs.DlHandle, error) {
	v.mu.Lock()
	v.dlErr = fmt.Sprintf("%s: %v", filename, ErrDlUnsupported)
	v.mu.Unlock()
	return 0, vfs.NewError(vfs.ERROR, "dlopen", ErrDlUnsupported)
}

func (v *osVFS) DlError() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dlErr
}

func (v *osVFS) DlSym(_ vfs.DlHandle, symbol string) (uintptr, error) {
	v.mu.Lock()
	v.dlErr = fmt.Sprintf("%s: %v", symbol, ErrDlUnsupported)
	v.mu.Unlock()
	return 0, vfs.NewError(vfs.ERROR, "dlsym", ErrDlUnsupported)
}

func (v *osVFS) DlClose(vfs.DlHandle) error {
	return vfs.NewError(vfs.ERROR, "dlclose", ErrDlUnsupported)
}

func (v *osVFS) Randomness(buf []byte) int {
	n, err := rand.Read(buf)
	v.record(err)
	return n
}

func (v *osVFS) Sleep(d time.Duration) time.Duration {
	start := time.Now()
	time.Sleep(d)
	return time.Since(start)
}

func (v *osVFS) CurrentTime() float64 {
	return float64(v.CurrentTimeInt64()) / 86400000.0
}

func (v *osVFS) CurrentTimeInt64() int64 {
	return time.Now().UnixMilli() + julianEpochMillis
}

func (v *osVFS) GetLastError() (int, string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.lastErr == nil {
		return 0, ""
	}
	var errno syscall.Errno
	if errors.As(v.lastErr, &errno) {
		return int(errno), v.lastErr.Error()
	}
	return -1, v.lastErr.Error()
}
