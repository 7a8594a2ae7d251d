package kvvfs

import (
	"fmt"

	"github.com/shengyf2/sqliteredis/lib/store"
	"github.com/shengyf2/sqliteredis/lib/vfs"
)

// virtualFile is an open file. It owns its store connection.
type virtualFile struct {
	vfs    *kvVFS
	name   string
	keys   keys
	conn   store.IStore
	flags  vfs.OpenFlag
	mapper *blockMapper
	locks  *lockMachine
	meta   FileMetadata
	closed bool
}

func newVirtualFile(v *kvVFS, name string, conn store.IStore, flags vfs.OpenFlag, meta FileMetadata) *virtualFile {
	k := keys{prefix: name}
	return &virtualFile{
		vfs:    v,
		name:   name,
		keys:   k,
		conn:   conn,
		flags:  flags,
		mapper: &blockMapper{
			store:     conn,
			keys:      k,
			blockSize: int64(meta.BlockSize),
			maxSize:   int64(meta.BlockSize) * v.cfg.MaxBlocks,
		},
		locks:  newLockMachine(conn, k, v.cfg),
		meta:   meta,
	}
}

// reloadMeta refreshes the tracked metadata from the store.
func (f *virtualFile) reloadMeta() error {
	meta, found, err := loadMeta(f.conn, f.keys)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotExist
	}
	if int64(meta.BlockSize) != f.mapper.blockSize {
		return fmt.Errorf("%w: block size changed from %d to %d", ErrProtocol, f.mapper.blockSize, meta.BlockSize)
	}
	f.meta = meta
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see vfs/interface.go)
// --------------------------------------------------------------------------

func (f *virtualFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true

	if err := f.locks.Unlock(vfs.LockNone); err != nil {
		Logger.Warningf("releasing locks of %s on close failed, they expire with their lease: %v", f.name, err)
	}
	var deleteErr error
	if f.flags.Has(vfs.OpenDeleteOnClose) {
		deleteErr = deleteFile(f.conn, f.keys)
	}
	if err := f.conn.Close(); err != nil {
		return toVFS("close", vfs.IOERR_CLOSE, err)
	}
	Logger.Debugf("closed %s", f.name)
	return toVFS("close", vfs.IOERR_DELETE, deleteErr)
}

func (f *virtualFile) ReadAt(p []byte, off int64) (int, error) {
	if f.closed {
		return 0, toVFS("read", vfs.IOERR_READ, ErrClosed)
	}
	if off < 0 {
		return 0, vfs.NewError(vfs.MISUSE, "read", fmt.Errorf("negative offset %d", off))
	}
	if err := f.locks.Refresh(); err != nil {
		return 0, toVFS("read", vfs.IOERR_READ, err)
	}

	avail := int64(0)
	if off < f.meta.Size {
		avail = min(int64(len(p)), f.meta.Size-off)
	}
	if err := f.mapper.read(p[:avail], off); err != nil {
		return 0, toVFS("read", vfs.IOERR_READ, err)
	}
	if avail < int64(len(p)) {
		clear(p[avail:])
		return int(avail), vfs.NewError(vfs.IOERR_SHORT_READ, "read", nil)
	}
	return len(p), nil
}

func (f *virtualFile) WriteAt(p []byte, off int64) (int, error) {
	if f.closed {
		return 0, toVFS("write", vfs.IOERR_WRITE, ErrClosed)
	}
	if !f.flags.Has(vfs.OpenReadWrite) {
		return 0, toVFS("write", vfs.IOERR_WRITE, ErrReadOnly)
	}
	if off < 0 {
		return 0, vfs.NewError(vfs.MISUSE, "write", fmt.Errorf("negative offset %d", off))
	}
	if len(p) == 0 {
		return 0, nil
	}
	if err := f.mapper.checkRange(off, len(p)); err != nil {
		return 0, toVFS("write", vfs.IOERR_WRITE, err)
	}
	if err := f.locks.Refresh(); err != nil {
		return 0, toVFS("write", vfs.IOERR_WRITE, err)
	}

	end := off + int64(len(p))
	meta := f.meta
	if need := f.mapper.blocksFor(end); need > meta.HighWater {
		meta.HighWater = need
		if err := storeMeta(f.conn, f.keys, &meta); err != nil {
			return 0, toVFS("write", vfs.IOERR_WRITE, err)
		}
		f.meta = meta
	}
	if err := f.mapper.write(p, off); err != nil {
		return 0, toVFS("write", vfs.IOERR_WRITE, err)
	}
	if end > meta.Size {
		meta.Size = end
		if err := storeMeta(f.conn, f.keys, &meta); err != nil {
			return 0, toVFS("write", vfs.IOERR_WRITE, err)
		}
		f.meta = meta
	}
	return len(p), nil
}

func (f *virtualFile) Truncate(size int64) error {
	if f.closed {
		return toVFS("truncate", vfs.IOERR_TRUNCATE, ErrClosed)
	}
	if !f.flags.Has(vfs.OpenReadWrite) {
		return toVFS("truncate", vfs.IOERR_TRUNCATE, ErrReadOnly)
	}
	if size < 0 {
		return vfs.NewError(vfs.MISUSE, "truncate", fmt.Errorf("negative size %d", size))
	}
	if err := f.mapper.checkRange(size, 0); err != nil {
		return toVFS("truncate", vfs.IOERR_TRUNCATE, err)
	}
	if f.locks.Level() < vfs.LockReserved {
		return toVFS("truncate", vfs.IOERR_TRUNCATE, fmt.Errorf("%w: holding %s", ErrLockRequired, f.locks.Level()))
	}
	if err := f.locks.Refresh(); err != nil {
		return toVFS("truncate", vfs.IOERR_TRUNCATE, err)
	}

	meta := f.meta
	keep := f.mapper.blocksFor(size)
	if keep < meta.HighWater {
		if err := f.mapper.deleteRange(keep, meta.HighWater); err != nil {
			return toVFS("truncate", vfs.IOERR_TRUNCATE, err)
		}
		meta.HighWater = keep
	}
	if rem := size % f.mapper.blockSize; rem != 0 && size < meta.Size {
		if err := f.mapper.zeroTail(keep-1, int(rem)); err != nil {
			return toVFS("truncate", vfs.IOERR_TRUNCATE, err)
		}
	}
	meta.Size = size
	if err := storeMeta(f.conn, f.keys, &meta); err != nil {
		return toVFS("truncate", vfs.IOERR_TRUNCATE, err)
	}
	f.meta = meta
	return nil
}

func (f *virtualFile) Sync(vfs.SyncFlag) error {
	if f.closed {
		return toVFS("sync", vfs.IOERR_FSYNC, ErrClosed)
	}
	if err := f.locks.Refresh(); err != nil {
		return toVFS("sync", vfs.IOERR_FSYNC, err)
	}
	return toVFS("sync", vfs.IOERR_FSYNC, f.conn.Ping())
}

func (f *virtualFile) FileSize() (int64, error) {
	if f.closed {
		return 0, toVFS("filesize", vfs.IOERR_FSTAT, ErrClosed)
	}
	return f.meta.Size, nil
}

func (f *virtualFile) Lock(level vfs.LockLevel) error {
	if f.closed {
		return toVFS("lock", vfs.IOERR_LOCK, ErrClosed)
	}
	from := f.locks.Level()
	if err := f.locks.Lock(level); err != nil {
		return toVFS("lock", vfs.IOERR_LOCK, err)
	}
	if from == vfs.LockNone && f.locks.Level() >= vfs.LockShared {
		// others may have written while we held nothing
		if err := f.reloadMeta(); err != nil {
			if uErr := f.locks.Unlock(vfs.LockNone); uErr != nil {
				Logger.Warningf("dropping shared lock of %s failed: %v", f.name, uErr)
			}
			return toVFS("lock", vfs.IOERR_RDLOCK, err)
		}
	}
	return nil
}

func (f *virtualFile) Unlock(level vfs.LockLevel) error {
	if f.closed {
		return toVFS("unlock", vfs.IOERR_UNLOCK, ErrClosed)
	}
	return toVFS("unlock", vfs.IOERR_UNLOCK, f.locks.Unlock(level))
}

func (f *virtualFile) CheckReservedLock() (bool, error) {
	if f.closed {
		return false, toVFS("checkreservedlock", vfs.IOERR_LOCK, ErrClosed)
	}
	reserved, err := f.locks.CheckReserved()
	return reserved, toVFS("checkreservedlock", vfs.IOERR_LOCK, err)
}

func (f *virtualFile) FileControl(op vfs.FcntlOp, arg interface{}) error {
	switch op {
	case vfs.FcntlLockState:
		out, ok := arg.(*int)
		if !ok {
			return vfs.NewError(vfs.MISUSE, "filecontrol", fmt.Errorf("lock state needs *int, got %T", arg))
		}
		*out = int(f.locks.Level())
		return nil
	default:
		return vfs.NewError(vfs.NOTFOUND, "filecontrol", nil)
	}
}

func (f *virtualFile) SectorSize() int {
	return int(f.mapper.blockSize)
}

func (f *virtualFile) DeviceCharacteristics() vfs.DeviceCaps {
	return deviceCaps(int(f.mapper.blockSize))
}
