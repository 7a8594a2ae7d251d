// Package kvvfs stores the main database file of an embedded SQL engine in a
// key-value store. It implements vfs.IVFS and vfs.IFile on top of any
// store.IStore (redis, the rpc server, badger, memory) and forwards every
// OS service (randomness, sleep, time, dynamic loading, last error) to the
// VFS that was the default when it was registered.
//
// Storage layout of a file named P:
//
//	P:<n>               block n, exactly BlockSize bytes
//	P:meta              FileMetadata (msgpack)
//	P:lock:<level>      lockMarker for shared, reserved, pending and exclusive (msgpack)
//	P:lock:guard        lockmgr guard serializing lock state changes
//
// Blocks are created on first write and read as zeros while absent, so the
// engine sees a dense file over sparse storage. Writes that cover a block
// partially read, merge and rewrite it; writes that cover it fully overwrite
// it. The logical size lives in the metadata record and is always written
// after the blocks it covers.
//
// Locking follows the engine's five levels. Each level has a marker record
// naming its live holders with their last refresh time; a holder that did not
// refresh within Config.LeaseTimeout is dead and its level can be taken over.
// Handles refresh their markers while they are used, there are no background
// goroutines. Every marker change happens under the guard lock, contention on
// the guard or on a level is reported as BUSY and never retried internally.
//
// Usage Example:
//
//	reg := vfs.NewRegistry()
//	_ = reg.Register(osvfs.New(), true)
//
//	v, err := kvvfs.Register(reg, kvvfs.Config{
//		Dialer:       rstore.NewDialer(rstore.Options{Addr: "localhost:6379"}),
//		LeaseTimeout: 30 * time.Second,
//	})
//	f, _, err := v.Open("orders.db", vfs.OpenMainDB|vfs.OpenReadWrite|vfs.OpenCreate)
package kvvfs
