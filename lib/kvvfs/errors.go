package kvvfs

import (
	"errors"

	"github.com/shengyf2/sqliteredis/lib/vfs"
)

var (
	ErrPrefixTooLong           = errors.New("kvvfs: name exceeds the maximum key prefix length")
	ErrEmptyName               = errors.New("kvvfs: empty file name")
	ErrPathCategoryUnsupported = errors.New("kvvfs: only main database files are supported")
	ErrNotExist                = errors.New("kvvfs: file does not exist")
	ErrExist                   = errors.New("kvvfs: file already exists")
	ErrReadOnly                = errors.New("kvvfs: file was opened read-only")
	ErrClosed                  = errors.New("kvvfs: file is closed")
	ErrProtocol                = errors.New("kvvfs: malformed store value")
	ErrFileTooLarge            = errors.New("kvvfs: file would exceed the maximum size")
	ErrLockConflict            = errors.New("kvvfs: lock is held by another handle")
	ErrLockLost                = errors.New("kvvfs: lock lease expired")
	ErrLockRequired            = errors.New("kvvfs: operation requires a stronger lock")
	ErrInvalidTransition       = errors.New("kvvfs: invalid lock transition")
	ErrAlreadyRegistered       = errors.New("kvvfs: already registered")
	ErrNoDefaultVFS            = errors.New("kvvfs: no default vfs to delegate to")
)

// toVFS translates err into the host vocabulary. Lock conflicts become BUSY,
// contract violations MISUSE and everything else fallback.
func toVFS(op string, fallback vfs.ResultCode, err error) error {
	if err == nil {
		return nil
	}
	var vErr *vfs.Error
	if errors.As(err, &vErr) {
		return err
	}
	switch {
	case errors.Is(err, ErrLockConflict):
		return vfs.NewError(vfs.BUSY, op, err)
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrLockRequired), errors.Is(err, ErrClosed):
		return vfs.NewError(vfs.MISUSE, op, err)
	case errors.Is(err, ErrReadOnly):
		return vfs.NewError(vfs.READONLY, op, err)
	case errors.Is(err, ErrLockLost):
		return vfs.NewError(vfs.IOERR_LOCK, op, err)
	case errors.Is(err, ErrFileTooLarge):
		return vfs.NewError(vfs.FULL, op, err)
	default:
		return vfs.NewError(fallback, op, err)
	}
}
