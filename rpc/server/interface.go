package server

import (
	"github.com/shengyf2/sqliteredis/lib/store"
	"github.com/shengyf2/sqliteredis/rpc/common"
)

// IRPCServerAdapter translates requests into calls on a store
type IRPCServerAdapter interface {
	// Handle executes req against s and returns the response. Errors are
	// reported inside the response, never returned.
	Handle(req *common.Message, s store.IStore) (resp *common.Message)
}
