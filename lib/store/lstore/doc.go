// Package lstore implements a local, in-memory, single-node key-value store based on the
// store.IStore interface. Data is stored entirely in memory and is not persisted
// between process restarts.
//
// Key Features:
//   - Pure in-memory storage without persistence
//   - Lock free reads and writes through an xsync.MapOf
//   - Wall-clock TTLs for SetIfUnset, evaluated lazily on access
//   - Injectable clock so lease expiry can be tested without sleeping
//
// Thread Safety:
//
//	All operations are goroutine safe. SetIfUnset is atomic with respect to
//	concurrent writers of the same key.
//
// Usage Example:
//
//	s := lstore.NewLocalStore()
//	ok, err := s.SetIfUnset("db:lock:guard", owner, 5*time.Second)
//
//	// hand out one connection per virtual file
//	dial := store.SharedDialer(s)
package lstore
