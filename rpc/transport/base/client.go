package base

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/shengyf2/sqliteredis/rpc/common"
	"github.com/shengyf2/sqliteredis/rpc/transport"
)

var Logger = logger.GetLogger("transport/rpc")

var (
	// ErrTransportClosed is returned by Send after Close
	ErrTransportClosed = errors.New("transport is closed")
	// ErrTimeout is returned when no response arrived in time
	ErrTimeout = errors.New("request timed out")

	errNoConnections = errors.New("no connections configured")
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to endpoint
	Connect(endpoint string, timeout time.Duration) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientTransportConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// responseResult contains the result of a request
type responseResult struct {
	data []byte
	err  error
}

// wire is one established net connection with the requests waiting on it
type wire struct {
	conn    net.Conn
	pending *xsync.MapOf[uint64, chan responseResult]
	once    sync.Once
}

// clientConnection is one slot of the pool. Its wire is dialed lazily and
// redialed on the next request after a failure.
type clientConnection struct {
	endpoint string
	parent   *clientTransport
	mu       sync.Mutex // guards cur and serializes writes
	cur      *wire
}

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector     IClientConnector
	config        common.ClientConfig
	connectionsMu sync.RWMutex
	connections   []*clientConnection
	nextConnIndex atomic.Uint64 // Round Robin
	nextRequestID atomic.Uint64
	stopping      atomic.Bool
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{connector: connector}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if len(config.Transport.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}
	t.closeConnections()
	t.config = config
	t.stopping.Store(false)

	perEndpoint := max(1, config.Transport.ConnectionsPerEndpoint)
	conns := make([]*clientConnection, 0, len(config.Transport.Endpoints)*perEndpoint)
	var lastErr error
	connected := 0
	for _, endpoint := range config.Transport.Endpoints {
		for i := 0; i < perEndpoint; i++ {
			c := &clientConnection{endpoint: endpoint, parent: t}
			if err := c.ensureConn(); err != nil {
				Logger.Warningf("failed to connect to %s (connection %d/%d): %v", endpoint, i+1, perEndpoint, err)
				lastErr = err
			} else {
				connected++
			}
			conns = append(conns, c)
		}
	}

	if connected == 0 {
		for _, c := range conns {
			c.close()
		}
		return fmt.Errorf("failed to connect to any endpoint: %w", lastErr)
	}

	t.connectionsMu.Lock()
	t.connections = conns
	t.connectionsMu.Unlock()

	Logger.Debugf("connected %d of %d connections to %d endpoints using %s transport",
		connected, len(conns), len(config.Transport.Endpoints), t.connector.GetName())
	return nil
}

func (t *clientTransport) Send(shardId uint64, req []byte) ([]byte, error) {
	if t.stopping.Load() {
		return nil, ErrTransportClosed
	}
	requestID := t.nextRequestID.Add(1)

	return retry.DoWithData(
		func() ([]byte, error) {
			if t.stopping.Load() {
				return nil, retry.Unrecoverable(ErrTransportClosed)
			}
			c := t.getNextConnection()
			if c == nil {
				return nil, retry.Unrecoverable(errNoConnections)
			}
			return c.roundTrip(shardId, requestID, req)
		},
		retry.Attempts(uint(max(1, t.config.Transport.RetryCount))),
		retry.Delay(50*time.Millisecond),
		retry.MaxJitter(10*time.Millisecond),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			Logger.Debugf("request attempt %d for shard %d failed: %v", n+1, shardId, err)
		}),
	)
}

func (t *clientTransport) Close() error {
	t.stopping.Store(true)
	t.closeConnections()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (t *clientTransport) timeout() time.Duration {
	return time.Duration(t.config.TimeoutSecond) * time.Second
}

// getNextConnection selects the next connection via Round Robin
func (t *clientTransport) getNextConnection() *clientConnection {
	t.connectionsMu.RLock()
	defer t.connectionsMu.RUnlock()

	switch len(t.connections) {
	case 0:
		return nil
	case 1:
		return t.connections[0]
	default:
		return t.connections[t.nextConnIndex.Add(1)%uint64(len(t.connections))]
	}
}

// closeConnections closes all connections and fails their pending requests
func (t *clientTransport) closeConnections() {
	t.connectionsMu.Lock()
	conns := t.connections
	t.connections = nil
	t.connectionsMu.Unlock()

	for _, c := range conns {
		c.close()
	}
}

// ensureConn dials the endpoint if the connection is down
func (c *clientConnection) ensureConn() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.dialLocked()
	return err
}

func (c *clientConnection) dialLocked() (*wire, error) {
	if c.cur != nil {
		return c.cur, nil
	}
	connector := c.parent.connector
	conn, err := connector.Connect(c.endpoint, c.parent.timeout())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.endpoint, err)
	}
	if err := connector.UpgradeConnection(conn, c.parent.config.Transport); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to upgrade connection to %s: %w", c.endpoint, err)
	}
	w := &wire{conn: conn, pending: xsync.NewMapOf[uint64, chan responseResult]()}
	c.cur = w
	go c.readResponses(w)
	return w, nil
}

// roundTrip writes one request and waits for its response
func (c *clientConnection) roundTrip(shardId, requestID uint64, req []byte) ([]byte, error) {
	respCh := make(chan responseResult, 1)
	timeout := c.parent.timeout()

	c.mu.Lock()
	w, err := c.dialLocked()
	if err == nil {
		w.pending.Store(requestID, respCh)
		defer w.pending.Delete(requestID)
		if timeout > 0 {
			_ = w.conn.SetWriteDeadline(time.Now().Add(timeout))
		}
		err = writeFrame(w.conn, shardId, requestID, req)
	}
	c.mu.Unlock()
	if err != nil {
		if w != nil {
			c.fail(w, err)
		}
		return nil, err
	}

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}
	select {
	case result := <-respCh:
		return result.data, result.err
	case <-timeoutCh:
		return nil, ErrTimeout
	}
}

// readResponses reads frames from w and hands them to the waiting requests
// until the connection fails.
func (c *clientConnection) readResponses(w *wire) {
	for {
		shardID, requestID, data, err := readFrame(w.conn, nil)
		if err != nil {
			c.fail(w, err)
			return
		}
		if respCh, found := w.pending.Load(requestID); found {
			respCh <- responseResult{data: data}
		} else {
			Logger.Warningf("received response for unknown request ID %d with shard ID %d", requestID, shardID)
		}
	}
}

// fail closes w and fails every request still waiting on it. A stream that
// failed mid frame cannot be resynchronized.
func (c *clientConnection) fail(w *wire, err error) {
	c.mu.Lock()
	if c.cur == w {
		c.cur = nil
	}
	c.mu.Unlock()

	w.once.Do(func() {
		_ = w.conn.Close()
		if !c.parent.stopping.Load() {
			Logger.Warningf("connection to %s lost: %v", c.endpoint, err)
		}
		w.pending.Range(func(_ uint64, ch chan responseResult) bool {
			select {
			case ch <- responseResult{err: fmt.Errorf("error reading response: %w", err)}:
			default:
			}
			return true
		})
	})
}

func (c *clientConnection) close() {
	c.mu.Lock()
	w := c.cur
	c.mu.Unlock()
	if w != nil {
		c.fail(w, ErrTransportClosed)
	}
}
