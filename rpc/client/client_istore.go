package client

import (
	"sync/atomic"
	"time"

	"github.com/shengyf2/sqliteredis/lib/store"
	"github.com/shengyf2/sqliteredis/rpc/common"
	"github.com/shengyf2/sqliteredis/rpc/serializer"
	"github.com/shengyf2/sqliteredis/rpc/transport"
)

// NewRPCStore connects transport and returns a store.IStore forwarding every
// operation to shardId on the server. The store owns the transport and
// closes it on Close.
func NewRPCStore(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (store.IStore, error) {
	if err := transport.Connect(config); err != nil {
		return nil, store.Errorf(store.RetCUnavailable, "connect to shard %d: %v", shardId, err)
	}
	return &rpcStore{
		shardId:    shardId,
		transport:  transport,
		serializer: serializer,
	}, nil
}

// NewDialer returns a store.Dialer creating one RPC store with its own
// transport per call, as the vfs opens one connection per file.
func NewDialer(
	shardId uint64,
	config common.ClientConfig,
	newTransport func() transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) store.Dialer {
	return func() (store.IStore, error) {
		return NewRPCStore(shardId, config, newTransport(), serializer)
	}
}

type rpcStore struct {
	shardId    uint64
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
	closed     atomic.Bool
}

var errClosed = store.NewError(store.RetCClosed, "rpc store is closed")

func (i *rpcStore) invoke(req *common.Message) (*common.Message, error) {
	if i.closed.Load() {
		return nil, errClosed
	}
	return invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcStore) Set(key string, value []byte) error {
	_, err := i.invoke(common.NewSetRequest(key, value))
	return err
}

func (i *rpcStore) SetIfUnset(key string, value []byte, ttl time.Duration) (bool, error) {
	resp, err := i.invoke(common.NewSetIfUnsetRequest(key, value, ttlMillis(ttl)))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcStore) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := i.invoke(common.NewDeleteRequest(keys))
	return err
}

func (i *rpcStore) Get(key string) ([]byte, bool, error) {
	resp, err := i.invoke(common.NewGetRequest(key))
	if err != nil {
		return nil, false, err
	}
	if !resp.Ok {
		return nil, false, nil
	}
	if resp.Value == nil {
		// json and gob drop empty slices
		return []byte{}, true, nil
	}
	return resp.Value, true, nil
}

func (i *rpcStore) Has(key string) (bool, error) {
	resp, err := i.invoke(common.NewHasRequest(key))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcStore) Ping() error {
	_, err := i.invoke(common.NewPingRequest())
	return err
}

func (i *rpcStore) Close() error {
	if i.closed.Swap(true) {
		return nil
	}
	return i.transport.Close()
}

// ttlMillis converts ttl to whole milliseconds, rounding up so a positive
// ttl never becomes "no expiry"
func ttlMillis(ttl time.Duration) uint64 {
	if ttl <= 0 {
		return 0
	}
	return uint64((ttl + time.Millisecond - 1) / time.Millisecond)
}
