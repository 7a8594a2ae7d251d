package client

import (
	"github.com/lni/dragonboat/v4/logger"
	"github.com/shengyf2/sqliteredis/lib/store"
	"github.com/shengyf2/sqliteredis/rpc/common"
	"github.com/shengyf2/sqliteredis/rpc/serializer"
	"github.com/shengyf2/sqliteredis/rpc/transport"
)

var (
	Logger = logger.GetLogger("rpc")
)

// invokeRPCRequest sends req to shardId and returns the response. Failures
// are returned as *store.Error: transport failures as RetCUnavailable,
// errors reported by the server with the code it sent.
func invokeRPCRequest(shardId uint64, req *common.Message, t transport.IRPCClientTransport, s serializer.IRPCSerializer) (*common.Message, error) {
	reqBytes, err := s.Serialize(*req)
	if err != nil {
		return nil, store.Errorf(store.RetCInternalError, "serialize %s request: %v", req.MsgType, err)
	}

	respBytes, err := t.Send(shardId, reqBytes)
	if err != nil {
		return nil, store.Errorf(store.RetCUnavailable, "%s request to shard %d: %v", req.MsgType, shardId, err)
	}

	resp := &common.Message{}
	if err := s.Deserialize(respBytes, resp); err != nil {
		return nil, store.Errorf(store.RetCInternalError, "deserialize %s response: %v", req.MsgType, err)
	}

	if resp.MsgType == common.MsgTError || resp.Err != "" {
		code := store.RetCode(resp.Code)
		if code == store.RetCSuccess {
			code = store.RetCInternalError
		}
		return nil, store.NewError(code, resp.Err)
	}
	if resp.MsgType != req.MsgType {
		return nil, store.Errorf(store.RetCInternalError, "unexpected message type %s, expected %s", resp.MsgType, req.MsgType)
	}
	return resp, nil
}
