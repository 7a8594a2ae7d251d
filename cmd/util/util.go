package util

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/shengyf2/sqliteredis/lib/kvvfs"
	"github.com/shengyf2/sqliteredis/lib/store"
	"github.com/shengyf2/sqliteredis/lib/store/bstore"
	"github.com/shengyf2/sqliteredis/lib/store/lstore"
	"github.com/shengyf2/sqliteredis/lib/store/rstore"
	"github.com/shengyf2/sqliteredis/rpc/client"
	"github.com/shengyf2/sqliteredis/rpc/common"
	"github.com/shengyf2/sqliteredis/rpc/serializer"
	"github.com/shengyf2/sqliteredis/rpc/transport"
	"github.com/shengyf2/sqliteredis/rpc/transport/http"
	"github.com/shengyf2/sqliteredis/rpc/transport/tcp"
	"github.com/shengyf2/sqliteredis/rpc/transport/unix"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Logger = logger.GetLogger("cli")

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables read by the CLI
	EnvPrefix = "kvvfs"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		if lineWidth > 0 && lineWidth+1+len(word) > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}
		currentLine.WriteString(word)
		lineWidth += len(word)
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}
	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads .env files and makes viper read KVVFS_* environment variables
func InitConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// --------------------------------------------------------------------------
// RPC flags (shared by serve and the rpc backend)
// --------------------------------------------------------------------------

// SetupRPCFlags adds the serializer and transport selection flags
func SetupRPCFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("serializer", "binary", WrapString("serializer to use (binary, msgpack, json, gob)"))
	cmd.PersistentFlags().String("transport", "tcp", WrapString("transport to use (tcp, unix, http)"))
}

// SetupRPCClientFlags adds the connection flags of the rpc backend
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int(key, 5, WrapString("The timeout in seconds of a single store operation"))

	key = "transport-endpoints"
	cmd.PersistentFlags().String(key, "localhost:8080", WrapString("The address of the store server. Multiple endpoints can be specified as a comma-separated list"))

	key = "transport-conn-per-endpoint"
	cmd.PersistentFlags().Int(key, 1, WrapString("Simultaneous connections per endpoint (ignored for http)"))

	key = "transport-retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many times to try a request"))

	key = "transport-write-buffer"
	cmd.PersistentFlags().String(key, "512KB", WrapString("The size of the socket write buffer (ignored for http)"))

	key = "transport-read-buffer"
	cmd.PersistentFlags().String(key, "512KB", WrapString("The size of the socket read buffer (ignored for http)"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY (tcp only)"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval in seconds (tcp only)"))

	key = "transport-tcp-linger"
	cmd.PersistentFlags().Int(key, 0, WrapString("The linger time in seconds, 0 keeps the system default (tcp only)"))

	key = "shard"
	cmd.PersistentFlags().Uint64(key, 1, WrapString("The shard of the store server holding the files"))
}

// GetSize reads a byte size such as "4KB" from viper
func GetSize(key string) (int, error) {
	size, err := ParseSize(viper.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid size for --%s: %w", key, err)
	}
	if size > math.MaxInt {
		return 0, fmt.Errorf("invalid size for --%s: %d bytes is too large", key, size)
	}
	return int(size), nil
}

// ParseSize parses a human readable size like "8KB" into bytes. Sizes that do
// not fit an int64 are rejected.
func ParseSize(s string) (int64, error) {
	var size datasize.ByteSize
	if err := size.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	if size.Bytes() > math.MaxInt64 {
		return 0, fmt.Errorf("%s exceeds %d bytes", s, int64(math.MaxInt64))
	}
	return int64(size.Bytes()), nil
}

// GetClientConfig reads the rpc client configuration from viper
func GetClientConfig() (*common.ClientConfig, error) {
	writeBuf, err := GetSize("transport-write-buffer")
	if err != nil {
		return nil, err
	}
	readBuf, err := GetSize("transport-read-buffer")
	if err != nil {
		return nil, err
	}
	return &common.ClientConfig{
		TimeoutSecond: viper.GetInt("timeout"),
		Transport: common.ClientTransportConfig{
			RetryCount:             viper.GetInt("transport-retries"),
			Endpoints:              strings.Split(viper.GetString("transport-endpoints"), ","),
			ConnectionsPerEndpoint: viper.GetInt("transport-conn-per-endpoint"),
			SocketConf: common.SocketConf{
				WriteBufferSize: writeBuf,
				ReadBufferSize:  readBuf,
			},
			TCPConf: common.TCPConf{
				TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
				TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
				TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
			},
		},
	}, nil
}

// GetSerializer creates the serializer named by --serializer
func GetSerializer() (serializer.IRPCSerializer, error) {
	name := viper.GetString("serializer")
	s, ok := serializer.ByName(name)
	if !ok {
		return nil, fmt.Errorf("invalid serializer %s", name)
	}
	return s, nil
}

// GetClientTransport returns a factory for the client transport named by --transport
func GetClientTransport() (func() transport.IRPCClientTransport, error) {
	switch name := viper.GetString("transport"); name {
	case "http":
		return http.NewHttpClientTransport, nil
	case "tcp":
		return tcp.NewTCPClientTransport, nil
	case "unix":
		return unix.NewUnixClientTransport, nil
	default:
		return nil, fmt.Errorf("invalid transport %s", name)
	}
}

// GetServerTransport creates the server transport named by --transport
func GetServerTransport() (transport.IRPCServerTransport, error) {
	switch name := viper.GetString("transport"); name {
	case "http":
		return http.NewHttpServerTransport(), nil
	case "tcp":
		return tcp.NewTCPServerTransport(), nil
	case "unix":
		return unix.NewUnixServerTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", name)
	}
}

// GetShardID retrieves the configured shard ID
func GetShardID() uint64 {
	return viper.GetUint64("shard")
}

// --------------------------------------------------------------------------
// Store and layer flags (file commands)
// --------------------------------------------------------------------------

// Backend names accepted by --backend
const (
	BackendRedis  = "redis"
	BackendRPC    = "rpc"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// SetupStoreFlags adds the flags selecting and configuring the backing store
func SetupStoreFlags(cmd *cobra.Command) {
	key := "backend"
	cmd.PersistentFlags().String(key, BackendRedis, WrapString("The backing store (redis, rpc, badger, memory). The memory store only lives as long as the command"))

	key = "redis-addr"
	cmd.PersistentFlags().String(key, "localhost:6379", WrapString("host:port of the redis server"))

	key = "redis-db"
	cmd.PersistentFlags().Int(key, 0, WrapString("The redis database number"))

	key = "redis-username"
	cmd.PersistentFlags().String(key, "", WrapString("The redis ACL user"))

	key = "redis-password"
	cmd.PersistentFlags().String(key, "", WrapString("The redis password"))

	key = "badger-dir"
	cmd.PersistentFlags().String(key, "data/kvvfs", WrapString("The directory of the badger store"))

	key = "block-size"
	cmd.PersistentFlags().String(key, "4KB", WrapString("The block size of newly created files (power of two between 512B and 64KB)"))

	key = "max-blocks"
	cmd.PersistentFlags().Int64(key, kvvfs.DefaultMaxBlocks, WrapString("The number of blocks a file may span. Larger writes fail with FULL"))

	key = "lease"
	cmd.PersistentFlags().Duration(key, 30*time.Second, WrapString("The lease of lock markers. Markers not refreshed for this long are reclaimed by other handles"))

	SetupRPCFlags(cmd)
	SetupRPCClientFlags(cmd)
}

// GetDialer returns the dialer of the store selected by --backend and a
// function releasing resources shared by all connections. The timeout
// flag bounds each store operation.
func GetDialer() (store.Dialer, func() error, error) {
	noop := func() error { return nil }
	timeout := time.Duration(viper.GetInt("timeout")) * time.Second

	switch backend := viper.GetString("backend"); backend {
	case BackendRedis:
		return rstore.NewDialer(rstore.Options{
			Addr:     viper.GetString("redis-addr"),
			Username: viper.GetString("redis-username"),
			Password: viper.GetString("redis-password"),
			DB:       viper.GetInt("redis-db"),
			Timeout:  timeout,
		}), noop, nil

	case BackendRPC:
		conf, err := GetClientConfig()
		if err != nil {
			return nil, nil, err
		}
		s, err := GetSerializer()
		if err != nil {
			return nil, nil, err
		}
		t, err := GetClientTransport()
		if err != nil {
			return nil, nil, err
		}
		Logger.Debugf("rpc backend %s", conf.String())
		return client.NewDialer(GetShardID(), *conf, t, s), noop, nil

	case BackendBadger:
		dir := viper.GetString("badger-dir")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
		st, err := bstore.Open(bstore.Options{Dir: dir})
		if err != nil {
			return nil, nil, fmt.Errorf("open badger store %s: %w", dir, err)
		}
		return store.SharedDialer(st), st.Close, nil

	case BackendMemory:
		st := lstore.NewLocalStore()
		return store.SharedDialer(st), st.Close, nil

	default:
		return nil, nil, fmt.Errorf("invalid backend %s (expected one of: redis, rpc, badger, memory)", backend)
	}
}

// GetLayerConfig builds the layer configuration from viper around dialer
func GetLayerConfig(dialer store.Dialer) (kvvfs.Config, error) {
	blockSize, err := GetSize("block-size")
	if err != nil {
		return kvvfs.Config{}, err
	}
	cfg := kvvfs.Config{
		Dialer:       dialer,
		BlockSize:    blockSize,
		MaxBlocks:    viper.GetInt64("max-blocks"),
		LeaseTimeout: viper.GetDuration("lease"),
	}
	return cfg, cfg.Validate()
}
