package kvvfs

import (
	"errors"
	"fmt"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/shengyf2/sqliteredis/lib/store"
	"github.com/shengyf2/sqliteredis/lib/vfs"
)

var Logger = logger.GetLogger("kvvfs")

// kvVFS implements vfs.IVFS. Storage calls go to the key-value store, OS
// calls go to parent.
type kvVFS struct {
	cfg    Config
	parent vfs.IVFS
}

// New creates the VFS without registering it. OS services are forwarded to
// parent.
func New(parent vfs.IVFS, cfg Config) (vfs.IVFS, error) {
	if parent == nil {
		return nil, vfs.NewError(vfs.NOLFS, "new", ErrNoDefaultVFS)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kvvfs config: %w", err)
	}
	return &kvVFS{cfg: cfg.withDefaults(), parent: parent}, nil
}

// checkName validates a file name before any connection is made.
func (v *kvVFS) checkName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > v.cfg.MaxPrefixLen {
		return fmt.Errorf("%w: %d > %d bytes", ErrPrefixTooLong, len(name), v.cfg.MaxPrefixLen)
	}
	return nil
}

// dial opens a connection or fails with CANTOPEN.
func (v *kvVFS) dial(op string) (store.IStore, error) {
	conn, err := v.cfg.Dialer()
	if err != nil {
		return nil, vfs.NewError(vfs.CANTOPEN, op, fmt.Errorf("connect: %w", err))
	}
	return conn, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see vfs/interface.go)
// --------------------------------------------------------------------------

func (v *kvVFS) Name() string { return v.cfg.Name }

func (v *kvVFS) MaxPathname() int { return v.cfg.MaxPrefixLen }

func (v *kvVFS) Open(name string, flags vfs.OpenFlag) (vfs.IFile, vfs.OpenFlag, error) {
	file, out, err := v.open(name, flags)
	if err != nil {
		openFailures.Inc()
		Logger.Debugf("open %q failed: %v", name, err)
		return nil, 0, err
	}
	Logger.Infof("opened %q (block size %d, size %d)", name, file.meta.BlockSize, file.meta.Size)
	return file, out, nil
}

func (v *kvVFS) open(name string, flags vfs.OpenFlag) (*virtualFile, vfs.OpenFlag, error) {
	if flags.Category() != vfs.OpenMainDB {
		return nil, 0, vfs.NewError(vfs.CANTOPEN, "open", ErrPathCategoryUnsupported)
	}
	if err := v.checkName(name); err != nil {
		return nil, 0, vfs.NewError(vfs.CANTOPEN, "open", err)
	}

	conn, err := v.dial("open")
	if err != nil {
		return nil, 0, err
	}
	fail := func(err error) (*virtualFile, vfs.OpenFlag, error) {
		_ = conn.Close()
		return nil, 0, vfs.NewError(vfs.CANTOPEN, "open", err)
	}

	k := keys{prefix: name}
	meta, found, err := loadMeta(conn, k)
	if err != nil {
		return fail(err)
	}
	switch {
	case found && flags.Has(vfs.OpenExclusive|vfs.OpenCreate):
		return fail(ErrExist)
	case !found && !flags.Has(vfs.OpenCreate|vfs.OpenReadWrite):
		return fail(ErrNotExist)
	case !found:
		meta, err = createMeta(conn, k, FileMetadata{BlockSize: v.cfg.BlockSize})
		if err != nil {
			return fail(err)
		}
	}

	out := vfs.OpenReadOnly
	if flags.Has(vfs.OpenReadWrite) {
		out = vfs.OpenReadWrite
	}
	return newVirtualFile(v, name, conn, flags&^vfs.OpenReadOnly|out, meta), out, nil
}

func (v *kvVFS) Delete(name string, syncDir bool) error {
	if err := v.checkName(name); err != nil {
		return vfs.NewError(vfs.IOERR_DELETE_NOENT, "delete", err)
	}
	conn, err := v.dial("delete")
	if err != nil {
		return vfs.NewError(vfs.IOERR_DELETE, "delete", err)
	}
	defer conn.Close()

	if err := deleteFile(conn, keys{prefix: name}); err != nil {
		if errors.Is(err, ErrNotExist) {
			return vfs.NewError(vfs.IOERR_DELETE_NOENT, "delete", err)
		}
		return vfs.NewError(vfs.IOERR_DELETE, "delete", err)
	}
	if syncDir {
		if err := conn.Ping(); err != nil {
			return vfs.NewError(vfs.IOERR_DELETE, "delete", err)
		}
	}
	Logger.Infof("deleted %q", name)
	return nil
}

// deleteFile removes the blocks, then the lock records and finally the
// metadata, so a partially deleted file is still found (and deletable) by
// its metadata.
func deleteFile(conn store.IStore, k keys) error {
	meta, found, err := loadMeta(conn, k)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotExist
	}
	mapper := &blockMapper{store: conn, keys: k, blockSize: int64(meta.BlockSize)}
	if err := mapper.deleteRange(0, meta.HighWater); err != nil {
		return fmt.Errorf("delete blocks: %w", err)
	}
	if err := conn.Delete(k.lockKeys()...); err != nil {
		return fmt.Errorf("delete lock records: %w", err)
	}
	if err := conn.Delete(k.meta()); err != nil {
		return fmt.Errorf("delete metadata: %w", err)
	}
	return nil
}

func (v *kvVFS) Access(name string, _ vfs.AccessFlag) (bool, error) {
	if v.checkName(name) != nil {
		return false, nil
	}
	conn, err := v.dial("access")
	if err != nil {
		return false, vfs.NewError(vfs.IOERR_ACCESS, "access", err)
	}
	defer conn.Close()

	exists, err := conn.Has(keys{prefix: name}.meta())
	if err != nil {
		return false, vfs.NewError(vfs.IOERR_ACCESS, "access", err)
	}
	return exists, nil
}

// FullPathname returns name unchanged, names are key prefixes and not paths.
func (v *kvVFS) FullPathname(name string) (string, error) {
	return name, nil
}

// --------------------------------------------------------------------------
// OS services, forwarded to the captured default
// --------------------------------------------------------------------------

func (v *kvVFS) DlOpen(filename string) (vfs.DlHandle, error) {
	return v.parent.DlOpen(filename)
}

func (v *kvVFS) DlError() string {
	return v.parent.DlError()
}

func (v *kvVFS) DlSym(handle vfs.DlHandle, symbol string) (uintptr, error) {
	return v.parent.DlSym(handle, symbol)
}

func (v *kvVFS) DlClose(handle vfs.DlHandle) error {
	return v.parent.DlClose(handle)
}

func (v *kvVFS) Randomness(buf []byte) int {
	return v.parent.Randomness(buf)
}

func (v *kvVFS) Sleep(d time.Duration) time.Duration {
	return v.parent.Sleep(d)
}

func (v *kvVFS) CurrentTime() float64 {
	return v.parent.CurrentTime()
}

func (v *kvVFS) CurrentTimeInt64() int64 {
	return v.parent.CurrentTimeInt64()
}

func (v *kvVFS) GetLastError() (int, string) {
	return v.parent.GetLastError()
}

// Parent returns the VFS OS services are forwarded to.
func (v *kvVFS) Parent() vfs.IVFS {
	return v.parent
}
