package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/shengyf2/sqliteredis/rpc/common"
	"github.com/shengyf2/sqliteredis/rpc/transport"
)

// NewHttpClientTransport creates a client posting every request to
// <endpoint>/<shardId>
func NewHttpClientTransport() transport.IRPCClientTransport {
	return &httpClientTransport{}
}

type httpClientTransport struct {
	serverURLs []*url.URL
	client     *http.Client
	counter    atomic.Uint32
	retryCount int
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *httpClientTransport) Connect(config common.ClientConfig) error {
	if len(config.Transport.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}
	parsedURLs := make([]*url.URL, len(config.Transport.Endpoints))
	for i, server := range config.Transport.Endpoints {
		parsedURL, err := url.Parse(server)
		if err != nil {
			return err
		}
		if parsedURL.Scheme == "" || parsedURL.Host == "" {
			return fmt.Errorf("endpoint %q is not an absolute url", server)
		}
		parsedURLs[i] = parsedURL
	}

	timeout := time.Duration(config.TimeoutSecond) * time.Second
	t.client = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: max(2, config.Transport.ConnectionsPerEndpoint),
			IdleConnTimeout:     90 * time.Second,
		},
	}
	t.serverURLs = parsedURLs
	t.retryCount = max(1, config.Transport.RetryCount)
	return nil
}

func (t *httpClientTransport) Send(shardId uint64, req []byte) ([]byte, error) {
	if t.client == nil {
		return nil, fmt.Errorf("http transport not initialized")
	}
	return retry.DoWithData(
		func() ([]byte, error) {
			idx := t.counter.Add(1) % uint32(len(t.serverURLs))
			return t.post(t.serverURLs[idx].JoinPath(strconv.FormatUint(shardId, 10)).String(), req)
		},
		retry.Attempts(uint(t.retryCount)),
		retry.Delay(50*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var status statusError
			// the server answered, repeating will not help
			return !errors.As(err, &status) || status.code >= 500
		}),
	)
}

func (t *httpClientTransport) Close() error {
	if t.client != nil {
		t.client.CloseIdleConnections()
	}
	t.client = nil
	t.serverURLs = nil
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

type statusError struct {
	code   int
	status string
}

func (e statusError) Error() string { return "http error: " + e.status }

func (t *httpClientTransport) post(u string, req []byte) ([]byte, error) {
	resp, err := t.client.Post(u, "application/octet-stream", bytes.NewReader(req))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, statusError{code: resp.StatusCode, status: resp.Status}
	}
	return io.ReadAll(resp.Body)
}
