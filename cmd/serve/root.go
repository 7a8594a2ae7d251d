package serve

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/VictoriaMetrics/metrics"
	cmdUtil "github.com/shengyf2/sqliteredis/cmd/util"
	"github.com/shengyf2/sqliteredis/rpc/common"
	"github.com/shengyf2/sqliteredis/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:   "serve",
		Short: "Start the store server",
		Long: `Start the store server the rpc backend connects to. Every shard is an
independent key space kept in memory or in a badger database below --data-dir.
The configuration can be set via command line flags or environment variables.
The format of the environment variables is KVVFS_<flag> (e.g. KVVFS_DATA_DIR=/var/lib/kvvfs)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	key := "shards"
	ServeCmd.PersistentFlags().String(key, "1=memory", cmdUtil.WrapString("Comma-separated list of shards to serve. Format: ID=TYPE where TYPE is one of: memory, badger"))

	key = "data-dir"
	ServeCmd.PersistentFlags().String(key, "data", cmdUtil.WrapString("DataDir is the parent directory of the badger shards"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Read and write timeout of a connection in seconds, 0 disables it"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the server will listen (e.g. localhost:8080, /tmp/kvvfs.sock, ...)"))

	key = "workers-per-conn"
	ServeCmd.PersistentFlags().Int(key, 4, cmdUtil.WrapString("Requests handled concurrently per connection"))

	key = "buffer-size"
	ServeCmd.PersistentFlags().String(key, "64KB", cmdUtil.WrapString("Size of the pooled frame buffers, should exceed one block plus framing"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address serving prometheus metrics at /metrics (e.g. localhost:9090), disabled if empty"))

	cmdUtil.SetupRPCFlags(ServeCmd)
}

// ParseShards parses a list like "1=memory,2=badger"
func ParseShards(list string) ([]common.ServerShard, error) {
	var shards []common.ServerShard
	seen := make(map[uint64]bool)
	for _, shardConfig := range strings.Split(list, ",") {
		parts := strings.Split(shardConfig, "=")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid shard format: %s (expected ID=TYPE)", shardConfig)
		}

		shardID, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid shard ID %s: %v", parts[0], err)
		}
		if seen[shardID] {
			return nil, fmt.Errorf("duplicate shard ID %d", shardID)
		}
		seen[shardID] = true

		shardType := common.ServerShardType(strings.TrimSpace(parts[1]))
		switch shardType {
		case common.ShardTypeMemory, common.ShardTypeBadger:
		default:
			return nil, fmt.Errorf("invalid shard type: %s (expected one of: memory, badger)", shardType)
		}

		shards = append(shards, common.ServerShard{ShardID: shardID, Type: shardType})
	}
	return shards, nil
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	shards, err := ParseShards(viper.GetString("shards"))
	if err != nil {
		return err
	}
	bufferSize, err := cmdUtil.GetSize("buffer-size")
	if err != nil {
		return err
	}

	serveCmdConfig.Shards = shards
	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.TimeoutSecond = viper.GetInt("timeout")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.Transport = common.ServerTransportConfig{
		Endpoint:       viper.GetString("endpoint"),
		WorkersPerConn: viper.GetInt("workers-per-conn"),
		BufferSize:     bufferSize,
		TCPConf:        common.TCPConf{TCPNoDelay: true},
	}
	return nil
}

// run starts the server and stops it on SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}
	t, err := cmdUtil.GetServerTransport()
	if err != nil {
		return err
	}

	if serveCmdConfig.MetricsEndpoint != "" {
		go serveMetrics(serveCmdConfig.MetricsEndpoint)
	}

	serv := server.NewRPCServer(*serveCmdConfig, t, s)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	done := make(chan error, 1)
	go func() { done <- serv.Serve() }()

	select {
	case err := <-done:
		return errors.Join(err, serv.Close())
	case received := <-sig:
		cmdUtil.Logger.Infof("received %s, shutting down", received)
		closeErr := serv.Close()
		return errors.Join(<-done, closeErr)
	}
}

// metricsHandler exposes all registered metrics in the prometheus text format
func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})
	return mux
}

func serveMetrics(endpoint string) {
	cmdUtil.Logger.Infof("serving metrics on %s/metrics", endpoint)
	if err := http.ListenAndServe(endpoint, metricsHandler()); err != nil {
		cmdUtil.Logger.Errorf("metrics endpoint stopped: %v", err)
	}
}
