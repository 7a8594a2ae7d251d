// Package client implements store.IStore on top of the rpc transports, so a
// vfs can keep its files on a remote store server.
//
// NewRPCStore connects a transport and forwards every store operation to one
// shard of the server. NewDialer wraps it as a store.Dialer that creates a
// fresh transport per connection:
//
//	dial := client.NewDialer(1, common.ClientConfig{
//		TimeoutSecond: 5,
//		Transport: common.ClientTransportConfig{
//			Endpoints:  []string{"localhost:7070"},
//			RetryCount: 3,
//		},
//	}, tcp.NewTCPClientTransport, serializer.NewBinarySerializer())
//
// Errors are *store.Error values. Failures to reach the server are
// RetCUnavailable, errors raised by the server's store keep their code.
//
// Thread Safety:
//
//	A store may be used from multiple goroutines, the transports multiplex
//	concurrent requests.
package client
