package kvvfs

import (
	"strconv"

	"github.com/shengyf2/sqliteredis/lib/vfs"
)

// keys builds the store keys of one file. Every key of prefix P has the form
// "P:<x>" where x is a decimal block index, "meta" or "lock:<word>", so the
// keys of two different prefixes never collide.
type keys struct {
	prefix string
}

func (k keys) block(index int64) string {
	return k.prefix + ":" + strconv.FormatInt(index, 10)
}

func (k keys) meta() string {
	return k.prefix + ":meta"
}

func (k keys) lock(level vfs.LockLevel) string {
	return k.prefix + ":lock:" + level.String()
}

func (k keys) guard() string {
	return k.prefix + ":lock:guard"
}

// lockKeys returns the marker keys of all levels plus the guard key.
func (k keys) lockKeys() []string {
	return []string{
		k.lock(vfs.LockShared),
		k.lock(vfs.LockReserved),
		k.lock(vfs.LockPending),
		k.lock(vfs.LockExclusive),
		k.guard(),
	}
}
