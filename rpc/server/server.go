package server

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/shengyf2/sqliteredis/lib/store"
	"github.com/shengyf2/sqliteredis/lib/store/bstore"
	"github.com/shengyf2/sqliteredis/lib/store/lstore"
	"github.com/shengyf2/sqliteredis/rpc/common"
	"github.com/shengyf2/sqliteredis/rpc/serializer"
	"github.com/shengyf2/sqliteredis/rpc/transport"
)

var Logger = logger.GetLogger("rpc")

// serverShard is a store served under a shard ID together with the adapter
// handling its requests
type serverShard struct {
	Store   store.IStore
	Adapter IRPCServerAdapter
}

// RPCServer serves the stores of its shards over a transport
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	shards     *xsync.MapOf[uint64, serverShard]
}

// NewRPCServer creates a new RPC server
//
// Usage:
//
//	s := server.NewRPCServer(config, tcp.NewTCPServerTransport(), serializer.NewBinarySerializer())
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}
	return &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		shards:     xsync.NewMapOf[uint64, serverShard](),
	}
}

// AddShard serves s under shardID. Shards listed in the configuration are
// only created if no store was added for their ID. The server closes added
// stores on Close.
func (s *RPCServer) AddShard(shardID uint64, st store.IStore) {
	s.shards.Store(shardID, serverShard{Store: st, Adapter: NewIStoreServerAdapter()})
}

// Serve creates the configured shards and serves requests until Close.
func (s *RPCServer) Serve() error {
	Logger.Infof("starting store server %s", s.config.String())
	if err := s.init(); err != nil {
		s.closeStores()
		return err
	}
	return s.transport.Listen(s.config)
}

// Close stops the transport and closes all shard stores
func (s *RPCServer) Close() error {
	err := s.transport.Close()
	return errors.Join(err, s.closeStores())
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (s *RPCServer) init() error {
	for _, shardConfig := range s.config.Shards {
		if _, exists := s.shards.Load(shardConfig.ShardID); exists {
			continue
		}
		st, err := s.openShard(shardConfig)
		if err != nil {
			return fmt.Errorf("shard %d: %w", shardConfig.ShardID, err)
		}
		s.AddShard(shardConfig.ShardID, st)
		Logger.Infof("created %s store for shard %d", shardConfig.Type, shardConfig.ShardID)
	}
	if s.shards.Size() == 0 {
		return fmt.Errorf("no shards configured")
	}
	s.transport.RegisterHandler(s.handle)
	return nil
}

func (s *RPCServer) openShard(shard common.ServerShard) (store.IStore, error) {
	switch shard.Type {
	case common.ShardTypeMemory:
		return lstore.NewLocalStore(), nil
	case common.ShardTypeBadger:
		dir := s.config.ShardDir(shard.ShardID)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		return bstore.Open(bstore.Options{Dir: dir})
	default:
		return nil, fmt.Errorf("invalid shard type: %q", shard.Type)
	}
}

// handle is the transport handler: decode, dispatch to the shard, encode
func (s *RPCServer) handle(shardId uint64, req []byte) []byte {
	var resp *common.Message
	var msg common.Message
	if shard, ok := s.shards.Load(shardId); !ok {
		resp = common.NewErrorResponse(fmt.Sprintf("shard %d not found", shardId))
	} else if err := s.serializer.Deserialize(req, &msg); err != nil {
		resp = common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %s", err))
	} else {
		resp = shard.Adapter.Handle(&msg, shard.Store)
	}

	val, err := s.serializer.Serialize(*resp)
	if err != nil {
		Logger.Errorf("failed to serialize %s response: %v", resp.MsgType, err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(fmt.Sprintf("failed to serialize response: %s", err)))
	}
	return val
}

func (s *RPCServer) closeStores() error {
	var errs []error
	s.shards.Range(func(id uint64, shard serverShard) bool {
		if err := shard.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close shard %d: %w", id, err))
		}
		s.shards.Delete(id)
		return true
	})
	return errors.Join(errs...)
}
