package file

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/shengyf2/sqliteredis/lib/vfs"
)

// openFlags of a main database file
const (
	readFlags  = vfs.OpenMainDB | vfs.OpenReadOnly
	writeFlags = vfs.OpenMainDB | vfs.OpenReadWrite | vfs.OpenCreate
)

// chunkBlocks is the number of sectors copied per read or write
const chunkBlocks = 16

// BusyPolicy controls how long lock requests answered with BUSY are retried
type BusyPolicy struct {
	Attempts uint
	Delay    time.Duration
}

// lock climbs from the current level to level, retrying BUSY answers
func (p BusyPolicy) lock(f vfs.IFile, levels ...vfs.LockLevel) error {
	for _, level := range levels {
		err := retry.Do(
			func() error { return f.Lock(level) },
			retry.Attempts(max(1, p.Attempts)),
			retry.Delay(p.Delay),
			retry.DelayType(retry.FixedDelay),
			retry.RetryIf(vfs.IsBusy),
			retry.LastErrorOnly(true),
		)
		if err != nil {
			return fmt.Errorf("acquire %s lock: %w", level, err)
		}
	}
	return nil
}

// closeFile closes f, which also releases its locks, and joins the error into err
func closeFile(f vfs.IFile, err *error) {
	*err = errors.Join(*err, f.Close())
}

// Put replaces the content of name with src while holding EXCLUSIVE and
// returns the number of bytes written.
func Put(v vfs.IVFS, src io.Reader, name string, busy BusyPolicy) (n int64, err error) {
	f, _, err := v.Open(name, writeFlags)
	if err != nil {
		return 0, err
	}
	defer closeFile(f, &err)

	if err := busy.lock(f, vfs.LockShared, vfs.LockReserved, vfs.LockExclusive); err != nil {
		return 0, err
	}

	buf := make([]byte, f.SectorSize()*chunkBlocks)
	for {
		read, rErr := io.ReadFull(src, buf)
		if read > 0 {
			if _, err := f.WriteAt(buf[:read], n); err != nil {
				return n, err
			}
			n += int64(read)
		}
		if errors.Is(rErr, io.EOF) || errors.Is(rErr, io.ErrUnexpectedEOF) {
			break
		}
		if rErr != nil {
			return n, rErr
		}
	}

	if err := f.Truncate(n); err != nil {
		return n, err
	}
	return n, f.Sync(vfs.SyncFull)
}

// Get copies the content of name to dst while holding SHARED and returns
// the number of bytes copied.
func Get(v vfs.IVFS, name string, dst io.Writer, busy BusyPolicy) (n int64, err error) {
	f, _, err := v.Open(name, readFlags)
	if err != nil {
		return 0, err
	}
	defer closeFile(f, &err)

	if err := busy.lock(f, vfs.LockShared); err != nil {
		return 0, err
	}
	size, err := f.FileSize()
	if err != nil {
		return 0, err
	}

	buf := make([]byte, f.SectorSize()*chunkBlocks)
	for n < size {
		chunk := buf[:min(int64(len(buf)), size-n)]
		if _, err := f.ReadAt(chunk, n); err != nil {
			return n, err
		}
		if _, err := dst.Write(chunk); err != nil {
			return n, err
		}
		n += int64(len(chunk))
	}
	return n, nil
}

// Truncate sets the size of name while holding EXCLUSIVE
func Truncate(v vfs.IVFS, name string, size int64, busy BusyPolicy) (err error) {
	f, _, err := v.Open(name, vfs.OpenMainDB|vfs.OpenReadWrite)
	if err != nil {
		return err
	}
	defer closeFile(f, &err)

	if err := busy.lock(f, vfs.LockShared, vfs.LockReserved, vfs.LockExclusive); err != nil {
		return err
	}
	if err := f.Truncate(size); err != nil {
		return err
	}
	return f.Sync(vfs.SyncFull)
}
