// Package rpc makes a store.IStore reachable over the network. It is split
// into:
//
//   - common: the Message protocol, configuration and logging setup
//   - serializer: wire encodings of Message
//   - transport: tcp, unix and http transports
//   - client: store.IStore and store.Dialer on top of a transport
//   - server: serves lstore and bstore shards
package rpc
