// Package transport defines how serialized rpc messages travel between the
// store client and server. Implementations live in the sub packages: tcp and
// unix share the framed, multiplexed protocol of package base, http posts
// each request to /{shardId}.
package transport
