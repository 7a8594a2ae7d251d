// Package rstore implements store.IStore on top of a redis server using
// go-redis. Each store owns exactly one connection (pool size 1), so a
// virtual file never shares its connection with another file.
//
// Mapping of the store protocol:
//
//	Get         GET key              (redis.Nil means not found)
//	Set         SET key value
//	SetIfUnset  SET key value NX PX ttl
//	Delete      DEL key [key ...]
//	Has         EXISTS key
//	Ping        PING
//
// Every command runs with its own deadline (Options.Timeout). Timeouts and
// network failures are reported as store.RetCUnavailable.
package rstore
