package common

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Transport configuration
// --------------------------------------------------------------------------

// SocketConf holds socket options shared by all stream transports
type SocketConf struct {
	// WriteBufferSize and ReadBufferSize set the kernel socket buffers, 0 keeps the default
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds options that only apply to tcp connections
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	// TCPLingerSec > 0 sets SO_LINGER, otherwise the system default is kept
	TCPLingerSec int
}

// ServerTransportConfig configures the listening side of a transport
type ServerTransportConfig struct {
	// Endpoint is a host:port for tcp and http or a socket path for unix
	Endpoint string
	// WorkersPerConn bounds the requests handled concurrently per connection
	WorkersPerConn int
	// BufferSize is the size of the pooled frame buffers
	BufferSize int
	SocketConf
	TCPConf
}

// ClientTransportConfig configures the dialing side of a transport
type ClientTransportConfig struct {
	Endpoints              []string
	RetryCount             int
	ConnectionsPerEndpoint int
	SocketConf
	TCPConf
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerShardType selects the store backing a shard
type ServerShardType string

const (
	// ShardTypeMemory keeps the shard in process memory
	ShardTypeMemory ServerShardType = "memory"
	// ShardTypeBadger persists the shard in a badger database below DataDir
	ShardTypeBadger ServerShardType = "badger"
)

type ServerShard struct {
	// ShardID is the ID of the shard
	ShardID uint64
	// Type is the store backing the shard
	Type ServerShardType
}

// ServerConfig holds all configuration parameters of the store server.
type ServerConfig struct {
	Shards []ServerShard

	// DataDir is the parent directory of persistent shards
	DataDir string

	// TimeoutSecond bounds reads and writes on a connection, 0 disables it
	TimeoutSecond int

	// LogLevel is one of debug, info, warn, error
	LogLevel string

	// MetricsEndpoint serves prometheus metrics when set
	MetricsEndpoint string

	Transport ServerTransportConfig
}

// ShardDir returns the directory of a persistent shard
func (c *ServerConfig) ShardDir(shardID uint64) string {
	return fmt.Sprintf("%s/shard-%d", strings.TrimRight(c.DataDir, "/"), shardID)
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder
	addSection, addField := formatter(&sb)

	addSection("RPC Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Workers Per Conn", strconv.Itoa(c.Transport.WorkersPerConn))
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	if c.MetricsEndpoint != "" {
		addField("Metrics", c.MetricsEndpoint)
	}

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	addSection("Shards")
	shards := append([]ServerShard(nil), c.Shards...)
	sort.Slice(shards, func(i, j int) bool { return shards[i].ShardID < shards[j].ShardID })
	for _, shard := range shards {
		value := string(shard.Type)
		if shard.Type == ShardTypeBadger {
			value += " (" + c.ShardDir(shard.ShardID) + ")"
		}
		addField(strconv.FormatUint(shard.ShardID, 10), value)
	}
	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	// TimeoutSecond bounds a single request, 0 disables it
	TimeoutSecond int
	Transport     ClientTransportConfig
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder
	addSection, addField := formatter(&sb)

	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.Transport.RetryCount))
	addField("Connections Per Endpoint", strconv.Itoa(max(1, c.Transport.ConnectionsPerEndpoint)))

	addSection("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}
	return sb.String()
}

// formatter returns helpers writing aligned sections and fields to sb
func formatter(sb *strings.Builder) (func(string), func(string, string)) {
	addSection := func(title string) {
		fmt.Fprintf(sb, "\n%s\n", strings.ToUpper(title))
	}
	addField := func(name, value string) {
		fmt.Fprintf(sb, "  %-24s: %s\n", name, value)
	}
	return addSection, addField
}
