// Package store defines the key-value protocol the virtual file layer talks to
// and the structured error type shared by every backend.
//
// Key Components:
//
//   - IStore Interface: GET/SET/DEL plus a conditional SetIfUnset used for
//     lease guards, Has for existence checks and Ping as an acknowledgement
//     barrier. All implementations share this interface, so the layer can run
//     against redis, the rpc server or an embedded store without code changes.
//
//   - Error System: A structured error reporting mechanism using typed error codes
//     and descriptive messages. Callers map RetCode values to their own error
//     vocabulary instead of parsing messages.
//
//   - Dialer: A function type that opens a new store connection. The virtual
//     file layer calls it once per open file.
//
// Implementations:
//
//	- Local Store (lstore): in-memory, goroutine safe, wall-clock TTLs.
//	  Used for tests, embedded use and as the volatile shard type of the rpc server.
//	  Available in the "github.com/shengyf2/sqliteredis/lib/store/lstore" package.
//
//	- Badger Store (bstore): persistent, embedded, built on badger.
//	  Available in the "github.com/shengyf2/sqliteredis/lib/store/bstore" package.
//
//	- Redis Store (rstore): a single redis connection per store.
//	  Available in the "github.com/shengyf2/sqliteredis/lib/store/rstore" package.
//
//	- RPC Store: a client of the rpc server, see the rpc/client package.
package store
