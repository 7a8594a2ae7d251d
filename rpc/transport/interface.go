package transport

import (
	"github.com/shengyf2/sqliteredis/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc handles one request. The transport calls it for every
// received frame with the shard the request is addressed to. req is only
// valid during the call.
type ServerHandleFunc func(shardId uint64, req []byte) (resp []byte)

// IRPCServerTransport is the interface for the server side of a transport
type IRPCServerTransport interface {
	// RegisterHandler sets the handler called for received requests
	RegisterHandler(handler ServerHandleFunc)
	// Listen accepts requests until Close is called. It returns nil after
	// Close and an error if the listener could not be created.
	Listen(config common.ServerConfig) error
	// Close stops listening and closes open connections
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the client side of a transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request to the server and returns the response
	Send(shardId uint64, req []byte) (resp []byte, err error)
	// Close closes the transport connection
	Close() error
}
