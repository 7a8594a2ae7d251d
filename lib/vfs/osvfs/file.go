package osvfs

import (
	"errors"
	"io"
	"os"

	"github.com/gofrs/flock"
	"github.com/shengyf2/sqliteredis/lib/vfs"
)

const sectorSize = 4096

type osFile struct {
	vfs           *osVFS
	f             *os.File
	path          string
	fileLock      *flock.Flock
	reservedLock  *flock.Flock
	level         vfs.LockLevel
	deleteOnClose bool
}

func (o *osFile) Close() error {
	_ = o.Unlock(vfs.LockNone)
	_ = o.fileLock.Close()
	_ = o.reservedLock.Close()
	err := o.f.Close()
	if o.deleteOnClose {
		_ = os.Remove(o.path)
		_ = os.Remove(o.path + lockSuffix)
	}
	if err != nil {
		return vfs.NewError(vfs.IOERR_CLOSE, "close", o.vfs.record(err))
	}
	return nil
}

func (o *osFile) ReadAt(p []byte, off int64) (int, error) {
	n, err := o.f.ReadAt(p, off)
	if errors.Is(err, io.EOF) {
		clear(p[n:])
		return n, vfs.NewError(vfs.IOERR_SHORT_READ, "read", nil)
	}
	if err != nil {
		return n, vfs.NewError(vfs.IOERR_READ, "read", o.vfs.record(err))
	}
	return n, nil
}

func (o *osFile) WriteAt(p []byte, off int64) (int, error) {
	n, err := o.f.WriteAt(p, off)
	if err != nil {
		return n, vfs.NewError(vfs.IOERR_WRITE, "write", o.vfs.record(err))
	}
	return n, nil
}

func (o *osFile) Truncate(size int64) error {
	if err := o.f.Truncate(size); err != nil {
		return vfs.NewError(vfs.IOERR_TRUNCATE, "truncate", o.vfs.record(err))
	}
	return nil
}

func (o *osFile) Sync(vfs.SyncFlag) error {
	if err := o.f.Sync(); err != nil {
		return vfs.NewError(vfs.IOERR_FSYNC, "sync", o.vfs.record(err))
	}
	return nil
}

func (o *osFile) FileSize() (int64, error) {
	info, err := o.f.Stat()
	if err != nil {
		return 0, vfs.NewError(vfs.IOERR_FSTAT, "filesize", o.vfs.record(err))
	}
	return info.Size(), nil
}

func (o *osFile) Lock(level vfs.LockLevel) error {
	if level <= o.level {
		return nil
	}
	if o.level == vfs.LockNone && level != vfs.LockShared {
		return vfs.NewError(vfs.MISUSE, "lock", nil)
	}

	switch level {
	case vfs.LockShared:
		if err := o.try(o.fileLock.TryRLock); err != nil {
			return err
		}
	case vfs.LockReserved, vfs.LockPending:
		if !o.reservedLock.Locked() {
			if err := o.try(o.reservedLock.TryLock); err != nil {
				return err
			}
		}
	case vfs.LockExclusive:
		if !o.reservedLock.Locked() {
			if err := o.try(o.reservedLock.TryLock); err != nil {
				return err
			}
		}
		// flock converts our shared lock in place
		if err := o.try(o.fileLock.TryLock); err != nil {
			// a failed conversion may have dropped the shared lock
			_ = o.fileLock.Unlock()
			_, _ = o.fileLock.TryRLock()
			o.level = vfs.LockPending
			return err
		}
	}
	o.level = level
	return nil
}

// try runs a non-blocking flock call and maps contention to BUSY.
func (o *osFile) try(fn func() (bool, error)) error {
	ok, err := fn()
	if err != nil {
		return vfs.NewError(vfs.IOERR_LOCK, "lock", o.vfs.record(err))
	}
	if !ok {
		return vfs.NewError(vfs.BUSY, "lock", nil)
	}
	return nil
}

func (o *osFile) Unlock(level vfs.LockLevel) error {
	if level >= o.level {
		return nil
	}
	if level > vfs.LockShared {
		return vfs.NewError(vfs.MISUSE, "unlock", nil)
	}

	if o.reservedLock.Locked() {
		if err := o.reservedLock.Unlock(); err != nil {
			return vfs.NewError(vfs.IOERR_UNLOCK, "unlock", o.vfs.record(err))
		}
	}
	if o.fileLock.Locked() || o.fileLock.RLocked() {
		if err := o.fileLock.Unlock(); err != nil {
			return vfs.NewError(vfs.IOERR_UNLOCK, "unlock", o.vfs.record(err))
		}
	}
	o.level = vfs.LockNone

	if level == vfs.LockShared {
		if err := o.try(o.fileLock.TryRLock); err != nil {
			return vfs.NewError(vfs.IOERR_RDLOCK, "unlock", err)
		}
		o.level = vfs.LockShared
	}
	return nil
}

func (o *osFile) CheckReservedLock() (bool, error) {
	if o.reservedLock.Locked() {
		return true, nil
	}
	peer := flock.New(o.path + lockSuffix)
	defer peer.Close()
	ok, err := peer.TryLock()
	if err != nil {
		return false, vfs.NewError(vfs.IOERR_ACCESS, "checkreservedlock", o.vfs.record(err))
	}
	if ok {
		_ = peer.Unlock()
	}
	return !ok, nil
}

func (o *osFile) FileControl(op vfs.FcntlOp, arg interface{}) error {
	if op == vfs.FcntlLockState {
		if out, ok := arg.(*int); ok {
			*out = int(o.level)
			return nil
		}
		return vfs.NewError(vfs.MISUSE, "filecontrol", nil)
	}
	return vfs.NewError(vfs.NOTFOUND, "filecontrol", nil)
}

func (o *osFile) SectorSize() int { return sectorSize }

func (o *osFile) DeviceCharacteristics() vfs.DeviceCaps { return 0 }
