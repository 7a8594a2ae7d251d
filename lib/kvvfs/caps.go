package kvvfs

import "github.com/shengyf2/sqliteredis/lib/vfs"

// deviceCaps returns what a file with the given block size can promise:
//
//   - a block aligned write of one block is a single SET (ATOMIC<blockSize>)
//     and rewrites bytes outside the written range with their old values
//     (POWERSAFE_OVERWRITE)
//   - blocks are written before the size that covers them (SAFE_APPEND)
//   - every store operation is acknowledged before the next one is issued
//     (SEQUENTIAL)
//
// Multi block writes are not atomic and nothing stops another handle from
// deleting an open file, so IocapAtomic and IocapUndeletableWhenOpen are
// never declared.
func deviceCaps(blockSize int) vfs.DeviceCaps {
	return vfs.AtomicCapFor(blockSize) |
		vfs.IocapSafeAppend |
		vfs.IocapSequential |
		vfs.IocapPowersafeOverwrite
}
