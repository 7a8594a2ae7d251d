// Package bstore implements a persistent, embedded store.IStore on top of
// badger. It is the durable shard type of the rpc server and can be used
// directly for single process deployments.
//
// SetIfUnset runs as one badger transaction reading and writing the key;
// a transaction conflict means another writer got there first and is
// reported as ok == false. TTLs use badger's native expiry, which has second
// granularity, so sub-second TTLs are rounded up.
package bstore
