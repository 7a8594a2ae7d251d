package base

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/shengyf2/sqliteredis/rpc/common"
	"github.com/shengyf2/sqliteredis/rpc/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tcpConnector is a minimal connector so the base package can be tested
// without importing a concrete transport.
type tcpConnector struct{}

func (tcpConnector) GetName() string { return "test" }
func (tcpConnector) Connect(endpoint string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("tcp", endpoint, timeout)
}
func (tcpConnector) UpgradeConnection(net.Conn, common.ClientTransportConfig) error { return nil }
func (tcpConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	return net.Listen("tcp", config.Transport.Endpoint)
}

type serverConnector struct{ tcpConnector }

func (serverConnector) UpgradeConnection(net.Conn, common.ServerTransportConfig) error { return nil }

// startEcho runs a server answering every request with shard ID and payload
func startEcho(t *testing.T, bufferSize int) (transport.IRPCServerTransport, string) {
	t.Helper()
	srv := NewBaseServerTransport(serverConnector{}, bufferSize)
	srv.RegisterHandler(func(shardId uint64, req []byte) []byte {
		return append([]byte{byte(shardId)}, req...)
	})
	done := make(chan error, 1)
	go func() {
		done <- srv.Listen(common.ServerConfig{Transport: common.ServerTransportConfig{Endpoint: "127.0.0.1:0"}})
	}()
	t.Cleanup(func() {
		require.NoError(t, srv.Close())
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	var addr net.Addr
	require.Eventually(t, func() bool {
		addr = srv.(*serverTransport).Addr()
		return addr != nil
	}, 5*time.Second, 5*time.Millisecond)
	return srv, addr.String()
}

func connect(t *testing.T, endpoint string, conns int) transport.IRPCClientTransport {
	t.Helper()
	c := NewBaseClientTransport(tcpConnector{})
	require.NoError(t, c.Connect(common.ClientConfig{
		TimeoutSecond: 5,
		Transport: common.ClientTransportConfig{
			Endpoints:              []string{endpoint},
			RetryCount:             2,
			ConnectionsPerEndpoint: conns,
		},
	}))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRoundTrip(t *testing.T) {
	_, endpoint := startEcho(t, 64)
	c := connect(t, endpoint, 2)

	resp, err := c.Send(7, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, []byte("\x07hello"), resp)

	// larger than the pooled buffers
	big := bytes.Repeat([]byte{1}, 4096)
	resp, err = c.Send(1, big)
	require.NoError(t, err)
	assert.Equal(t, append([]byte{1}, big...), resp)

	resp, err = c.Send(2, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, resp)
}

func TestConcurrentRequests(t *testing.T) {
	_, endpoint := startEcho(t, 1024)
	c := connect(t, endpoint, 1)

	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		go func(i int) {
			payload := []byte{byte(i), byte(i * 3)}
			resp, err := c.Send(uint64(i), payload)
			if err == nil && !bytes.Equal(resp, append([]byte{byte(i)}, payload...)) {
				err = assert.AnError
			}
			errs <- err
		}(i)
	}
	for i := 0; i < 50; i++ {
		assert.NoError(t, <-errs)
	}
}

func TestConnectFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	endpoint := l.Addr().String()
	require.NoError(t, l.Close())

	c := NewBaseClientTransport(tcpConnector{})
	err = c.Connect(common.ClientConfig{TimeoutSecond: 1, Transport: common.ClientTransportConfig{Endpoints: []string{endpoint}}})
	assert.Error(t, err)
	assert.Error(t, c.Connect(common.ClientConfig{}), "no endpoints")
}

func TestReconnectAfterServerRestart(t *testing.T) {
	srv, endpoint := startEcho(t, 64)
	c := connect(t, endpoint, 1)
	_, err := c.Send(1, []byte("a"))
	require.NoError(t, err)

	// dropping server side connections fails the client wire, the next
	// request redials
	srv.(*serverTransport).conns.Range(func(conn net.Conn, _ struct{}) bool {
		_ = conn.Close()
		return true
	})
	require.Eventually(t, func() bool {
		resp, err := c.Send(1, []byte("b"))
		return err == nil && bytes.Equal(resp, []byte("\x01b"))
	}, 5*time.Second, 20*time.Millisecond)
}

func TestSendAfterClose(t *testing.T) {
	_, endpoint := startEcho(t, 64)
	c := connect(t, endpoint, 1)
	require.NoError(t, c.Close())
	_, err := c.Send(1, []byte("x"))
	assert.ErrorIs(t, err, ErrTransportClosed)
}
