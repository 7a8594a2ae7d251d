package serializer

import "github.com/shengyf2/sqliteredis/rpc/common"

// IRPCSerializer is the interface for all Message serializers
type IRPCSerializer interface {
	// Serialize serializes a Message into a byte array
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize deserializes a byte array into msg, overwriting all of
	// its fields
	Deserialize(b []byte, msg *common.Message) error
}

// ByName returns the serializer registered under name: binary, msgpack,
// json or gob.
func ByName(name string) (IRPCSerializer, bool) {
	switch name {
	case "binary":
		return NewBinarySerializer(), true
	case "msgpack":
		return NewMsgpackSerializer(), true
	case "json":
		return NewJSONSerializer(), true
	case "gob":
		return NewGOBSerializer(), true
	default:
		return nil, false
	}
}
