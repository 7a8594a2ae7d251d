package serializer

import (
	"github.com/shengyf2/sqliteredis/rpc/common"
	"github.com/vmihailenco/msgpack/v5"
)

// NewMsgpackSerializer creates a new serializer using msgpack, the same
// encoding the vfs uses for its metadata records
func NewMsgpackSerializer() IRPCSerializer {
	return &msgpackSerializerImpl{}
}

// msgpackSerializerImpl implements the IRPCSerializer interface using msgpack
type msgpackSerializerImpl struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (m msgpackSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	return msgpack.Marshal(&msg)
}

func (m msgpackSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	*msg = common.Message{}
	return msgpack.Unmarshal(b, msg)
}
