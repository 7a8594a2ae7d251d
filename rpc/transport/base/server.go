package base

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/shengyf2/sqliteredis/rpc/common"
	"github.com/shengyf2/sqliteredis/rpc/transport"
)

const defaultWorkersPerConn = 4

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerTransportConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector  IServerConnector
	handler    transport.ServerHandleFunc
	config     common.ServerConfig
	bufferSize int

	mu       sync.Mutex
	listener net.Listener
	closed   bool
	conns    *xsync.MapOf[net.Conn, struct{}]
	pool     *sync.Pool
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport. Frame buffers
// of bufferSize bytes are pooled across connections.
func NewBaseServerTransport(connector IServerConnector, bufferSize int) transport.IRPCServerTransport {
	return &serverTransport{
		connector:  connector,
		bufferSize: bufferSize,
		conns:      xsync.NewMapOf[net.Conn, struct{}](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	if t.handler == nil {
		return fmt.Errorf("no handler registered")
	}
	t.config = config
	if config.Transport.BufferSize > 0 {
		t.bufferSize = config.Transport.BufferSize
	}
	size := t.bufferSize
	t.pool = &sync.Pool{New: func() interface{} { return make([]byte, size) }}

	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = listener.Close()
		return nil
	}
	t.listener = listener
	t.mu.Unlock()

	Logger.Infof("starting %s server on %s with %d workers per connection",
		t.connector.GetName(), listener.Addr(), t.workersPerConn())

	for {
		conn, err := listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			return nil
		}
		if err != nil {
			Logger.Errorf("accept error: %v", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if err := t.connector.UpgradeConnection(conn, config.Transport); err != nil {
			Logger.Warningf("failed to upgrade connection from %s: %v", conn.RemoteAddr(), err)
		}
		t.conns.Store(conn, struct{}{})
		go t.handleConnection(conn)
	}
}

func (t *serverTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	listener := t.listener
	t.mu.Unlock()

	var err error
	if listener != nil {
		err = listener.Close()
	}
	t.conns.Range(func(conn net.Conn, _ struct{}) bool {
		_ = conn.Close()
		return true
	})
	return err
}

// Addr returns the address the transport listens on, nil before Listen.
// Tests listening on port 0 use it to find the port.
func (t *serverTransport) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (t *serverTransport) workersPerConn() int {
	if t.config.Transport.WorkersPerConn > 0 {
		return t.config.Transport.WorkersPerConn
	}
	return defaultWorkersPerConn
}

// handleConnection reads requests from conn and hands them to at most
// workersPerConn concurrent workers. Responses may be written out of order,
// the client matches them by request ID.
func (t *serverTransport) handleConnection(conn net.Conn) {
	defer t.conns.Delete(conn)
	defer conn.Close()

	timeout := time.Duration(t.config.TimeoutSecond) * time.Second
	workers := make(chan struct{}, t.workersPerConn())
	var wg sync.WaitGroup
	var writeMu sync.Mutex

	respond := func(shardID, requestID uint64, data []byte, buf []byte) {
		defer func() {
			if buf != nil {
				t.pool.Put(buf)
			}
			<-workers
			wg.Done()
		}()

		start := time.Now()
		resp := t.handler(shardID, data)
		Logger.Debugf("request %d for shard %d took %s", requestID, shardID, time.Since(start))

		writeMu.Lock()
		defer writeMu.Unlock()
		if timeout > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(timeout))
		}
		if err := writeFrame(conn, shardID, requestID, resp); err != nil {
			Logger.Errorf("failed to write response: %v", err)
		}
	}

	for {
		if timeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(timeout))
		}
		buf := t.pool.Get().([]byte)
		shardID, requestID, data, err := readFrame(conn, buf)
		if err != nil {
			t.pool.Put(buf)
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				Logger.Debugf("connection from %s closed", conn.RemoteAddr())
			} else {
				Logger.Warningf("error reading request from %s: %v", conn.RemoteAddr(), err)
			}
			break
		}
		// payloads larger than the pooled buffer were read into a fresh slice
		if cap(buf) < len(data) {
			t.pool.Put(buf)
			buf = nil
		}

		workers <- struct{}{}
		wg.Add(1)
		go respond(shardID, requestID, data, buf)
	}

	// in flight requests still get their responses written
	wg.Wait()
}
