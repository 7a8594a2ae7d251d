// Package server serves store.IStore shards over the rpc transports.
//
// Each shard is a store addressed by its shard ID: an in memory lstore or a
// badger database below the data directory. Requests are decoded with the
// configured serializer and executed by the IStore adapter, which reports
// store errors with their code inside the response. Request counts per
// message type are exported as kvvfs_rpc_requests_total.
//
// A single server backs any number of vfs processes. SetIfUnset is atomic
// per shard, which is all the vfs needs for its lock guard.
package server
