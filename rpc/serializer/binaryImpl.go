package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/shengyf2/sqliteredis/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for the small, mostly binary messages of the store protocol
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format:
//
//	[type u8][flags u8][key][keys][ttl][value][code][err]
//
// Only fields flagged as present follow the header. Strings and byte slices
// are length prefixed (u32, big endian), keys carry a u32 count first. Ok is
// encoded in the flags alone.
type binarySerializerImpl struct{}

// Bit flags to indicate which optional fields are present
const (
	hasKey   byte = 1 << 0
	hasKeys  byte = 1 << 1
	hasTTL   byte = 1 << 2
	hasValue byte = 1 << 3
	hasOk    byte = 1 << 4
	hasCode  byte = 1 << 5
	hasErr   byte = 1 << 6
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	w := writer{buf: make([]byte, 2, b.sizeBytes(msg))}
	w.buf[0] = byte(msg.MsgType)

	var flags byte
	if msg.Key != "" {
		flags |= hasKey
		w.bytes([]byte(msg.Key))
	}
	if msg.Keys != nil {
		flags |= hasKeys
		w.u32(uint32(len(msg.Keys)))
		for _, k := range msg.Keys {
			w.bytes([]byte(k))
		}
	}
	if msg.TTL > 0 {
		flags |= hasTTL
		w.buf = binary.BigEndian.AppendUint64(w.buf, msg.TTL)
	}
	if msg.Value != nil {
		flags |= hasValue
		w.bytes(msg.Value)
	}
	if msg.Ok {
		flags |= hasOk
	}
	if msg.Code != 0 {
		flags |= hasCode
		w.buf = append(w.buf, msg.Code)
	}
	if msg.Err != "" {
		flags |= hasErr
		w.bytes([]byte(msg.Err))
	}

	w.buf[1] = flags
	return w.buf, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}
	*msg = common.Message{MsgType: common.MessageType(data[0])}
	flags := data[1]
	r := reader{data: data, pos: 2}

	if flags&hasKey != 0 {
		key, err := r.bytes("key")
		if err != nil {
			return err
		}
		msg.Key = string(key)
	}
	if flags&hasKeys != 0 {
		n, err := r.u32("key count")
		if err != nil {
			return err
		}
		// every key needs at least its length prefix
		if int(n) > (len(data)-r.pos)/4 {
			return fmt.Errorf("data too short for %d keys", n)
		}
		msg.Keys = make([]string, n)
		for i := range msg.Keys {
			key, err := r.bytes("keys")
			if err != nil {
				return err
			}
			msg.Keys[i] = string(key)
		}
	}
	if flags&hasTTL != 0 {
		if r.remaining() < 8 {
			return fmt.Errorf("data too short for TTL")
		}
		msg.TTL = binary.BigEndian.Uint64(data[r.pos:])
		r.pos += 8
	}
	if flags&hasValue != 0 {
		value, err := r.bytes("value")
		if err != nil {
			return err
		}
		// non nil even when empty
		msg.Value = append(make([]byte, 0, len(value)), value...)
	}
	msg.Ok = flags&hasOk != 0
	if flags&hasCode != 0 {
		if r.remaining() < 1 {
			return fmt.Errorf("data too short for code")
		}
		msg.Code = data[r.pos]
		r.pos++
	}
	if flags&hasErr != 0 {
		e, err := r.bytes("error")
		if err != nil {
			return err
		}
		msg.Err = string(e)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	size := 2
	if msg.Key != "" {
		size += 4 + len(msg.Key)
	}
	if msg.Keys != nil {
		size += 4
		for _, k := range msg.Keys {
			size += 4 + len(k)
		}
	}
	if msg.TTL > 0 {
		size += 8
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value)
	}
	if msg.Code != 0 {
		size++
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}
	return size
}

type writer struct {
	buf []byte
}

func (w *writer) u32(n uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, n)
}

func (w *writer) bytes(p []byte) {
	w.u32(uint32(len(p)))
	w.buf = append(w.buf, p...)
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) remaining() int { return len(r.data) - r.pos }

func (r *reader) u32(field string) (uint32, error) {
	if r.remaining() < 4 {
		return 0, fmt.Errorf("data too short for %s length", field)
	}
	n := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return n, nil
}

// bytes returns a length prefixed field. The result aliases the input.
func (r *reader) bytes(field string) ([]byte, error) {
	n, err := r.u32(field)
	if err != nil {
		return nil, err
	}
	if uint64(r.remaining()) < uint64(n) {
		return nil, fmt.Errorf("data too short for %s data", field)
	}
	p := r.data[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return p, nil
}
