// Package lockmgr implements lease locks on top of any store.IStore.
//
// A lock is a single key. AcquireLock writes a random owner id with
// SetIfUnset and reads it back, so the caller only owns the lock if the
// stored id is its own. This also covers transports that may apply a
// retried SetIfUnset twice. ReleaseLock deletes the key only if it still
// holds the caller's id.
//
// The package keeps no state besides the store. Any number of lock managers
// may be created on the same store, one per operation if convenient.
//
// A ttl > 0 makes the store drop the key on its own, which frees locks of
// crashed owners. Owners must finish their critical section well within the
// ttl, otherwise a second owner may acquire the lock while the first one
// still works.
//
// The virtual file layer (lib/kvvfs) uses a lock per file as the guard that
// serializes changes of the file's lock markers:
//
//	mgr := lockmgr.NewLockManager(conn)
//	ok, owner, err := mgr.AcquireLock("app.db:lock:guard", 5*time.Second)
//	if err != nil || !ok {
//		return err // busy
//	}
//	defer mgr.ReleaseLock("app.db:lock:guard", owner)
//
// Acquire costs one SetIfUnset and one Get, release one Get and one Delete.
package lockmgr
