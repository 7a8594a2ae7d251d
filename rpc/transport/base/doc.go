// Package base implements the framed stream protocol shared by the tcp and
// unix transports. Protocol specific dialing, listening and socket options
// are injected through IClientConnector and IServerConnector.
//
// Every frame carries the shard ID, a request ID and a length prefixed
// payload. A client connection multiplexes concurrent requests and matches
// responses by request ID, so the server may answer out of order. Each
// server connection handles up to WorkersPerConn requests concurrently and
// reuses frame buffers through a sync.Pool.
//
// The client keeps ConnectionsPerEndpoint connections per endpoint and picks
// them round robin. A failed connection fails its waiting requests and is
// redialed by the next request. Send retries failed attempts with
// exponential backoff and jitter (retry-go) up to RetryCount times. A retried
// request may have been applied already, callers must only send requests
// that are safe to repeat or can verify their outcome.
package base
