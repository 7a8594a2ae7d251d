package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/shengyf2/sqliteredis/lib/store"
	"github.com/shengyf2/sqliteredis/rpc/common"
)

// NewIStoreServerAdapter returns the adapter serving the store protocol
func NewIStoreServerAdapter() IRPCServerAdapter {
	return &iStoreServerAdapterImpl{}
}

type iStoreServerAdapterImpl struct{}

func (adapter *iStoreServerAdapterImpl) Handle(req *common.Message, s store.IStore) *common.Message {
	if s == nil {
		return common.NewErrorResponse("handler: store is nil")
	}
	metrics.GetOrCreateCounter(fmt.Sprintf(`kvvfs_rpc_requests_total{type=%q}`, req.MsgType)).Inc()

	switch req.MsgType {
	case common.MsgTKVSet:
		err := s.Set(req.Key, req.Value)
		return common.NewSetResponse(err, errCode(err))
	case common.MsgTKVSetIfUnset:
		ok, err := s.SetIfUnset(req.Key, req.Value, time.Duration(req.TTL)*time.Millisecond)
		return common.NewSetIfUnsetResponse(ok, err, errCode(err))
	case common.MsgTKVDelete:
		err := s.Delete(req.Keys...)
		return common.NewDeleteResponse(err, errCode(err))
	case common.MsgTKVGet:
		val, ok, err := s.Get(req.Key)
		if ok && val == nil {
			val = []byte{}
		}
		return common.NewGetResponse(val, ok, err, errCode(err))
	case common.MsgTKVHas:
		ok, err := s.Has(req.Key)
		return common.NewHasResponse(ok, err, errCode(err))
	case common.MsgTKVPing:
		err := s.Ping()
		return common.NewPingResponse(err, errCode(err))
	default:
		return common.NewErrorResponse(fmt.Sprintf("unsupported message type: %s", req.MsgType))
	}
}

// errCode extracts the code of a store.Error for the wire, 0 for nil
func errCode(err error) uint8 {
	if err == nil {
		return 0
	}
	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		return uint8(storeErr.Code)
	}
	return uint8(store.RetCInternalError)
}
