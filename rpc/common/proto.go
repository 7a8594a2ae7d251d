package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// Request fields
	Key   string   `json:"key,omitempty"`   // Used for: Set, SetIfUnset, Get, Has
	Keys  []string `json:"keys,omitempty"`  // Used for: Delete
	TTL   uint64   `json:"ttl,omitempty"`   // Milliseconds, used for: SetIfUnset
	Value []byte   `json:"value,omitempty"` // Used for: Set, SetIfUnset (request), Get (response)

	// Response only fields
	Ok   bool   `json:"ok,omitempty"`   // Used for: SetIfUnset, Get, Has responses
	Code uint8  `json:"code,omitempty"` // store.RetCode of a failed operation
	Err  string `json:"err,omitempty"`  // Empty if no error, otherwise contains the error message
}

// setErr fills the error fields of a response. Codes of store errors are
// kept so the client can rebuild them.
func (m *Message) setErr(err error, code uint8) *Message {
	if err != nil {
		m.Err = err.Error()
		m.Code = code
	}
	return m
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewSetRequest creates a new Set request
func NewSetRequest(key string, value []byte) *Message {
	return &Message{MsgType: MsgTKVSet, Key: key, Value: value}
}

// NewSetResponse creates a new Set response
func NewSetResponse(err error, code uint8) *Message {
	return (&Message{MsgType: MsgTKVSet}).setErr(err, code)
}

// NewSetIfUnsetRequest creates a new SetIfUnset request, ttlMillis 0 means
// the key never expires.
func NewSetIfUnsetRequest(key string, value []byte, ttlMillis uint64) *Message {
	return &Message{MsgType: MsgTKVSetIfUnset, Key: key, Value: value, TTL: ttlMillis}
}

// NewSetIfUnsetResponse creates a new SetIfUnset response
func NewSetIfUnsetResponse(ok bool, err error, code uint8) *Message {
	return (&Message{MsgType: MsgTKVSetIfUnset, Ok: ok}).setErr(err, code)
}

// NewDeleteRequest creates a new Delete request
func NewDeleteRequest(keys []string) *Message {
	return &Message{MsgType: MsgTKVDelete, Keys: keys}
}

// NewDeleteResponse creates a new Delete response
func NewDeleteResponse(err error, code uint8) *Message {
	return (&Message{MsgType: MsgTKVDelete}).setErr(err, code)
}

// NewGetRequest creates a new Get request
func NewGetRequest(key string) *Message {
	return &Message{MsgType: MsgTKVGet, Key: key}
}

// NewGetResponse creates a new Get response
func NewGetResponse(value []byte, ok bool, err error, code uint8) *Message {
	return (&Message{MsgType: MsgTKVGet, Ok: ok, Value: value}).setErr(err, code)
}

// NewHasRequest creates a new Has request
func NewHasRequest(key string) *Message {
	return &Message{MsgType: MsgTKVHas, Key: key}
}

// NewHasResponse creates a new Has response
func NewHasResponse(ok bool, err error, code uint8) *Message {
	return (&Message{MsgType: MsgTKVHas, Ok: ok}).setErr(err, code)
}

// NewPingRequest creates a new Ping request
func NewPingRequest() *Message {
	return &Message{MsgType: MsgTKVPing}
}

// NewPingResponse creates a new Ping response
func NewPingResponse(err error, code uint8) *Message {
	return (&Message{MsgType: MsgTKVPing}).setErr(err, code)
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{MsgType: MsgTError, Err: err}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

var msgTypeNames = map[MessageType]string{
	MsgTSuccess:      "success",
	MsgTError:        "error",
	MsgTKVSet:        "set",
	MsgTKVSetIfUnset: "setIfUnset",
	MsgTKVDelete:     "delete",
	MsgTKVGet:        "get",
	MsgTKVHas:        "has",
	MsgTKVPing:       "ping",
}

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	if name, ok := msgTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for mt, name := range msgTypeNames {
		if name == s {
			*t = mt
			return nil
		}
	}
	return fmt.Errorf("unknown message type: %s", s)
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// IStore operations

	MsgTKVSet        // Set a key-value pair
	MsgTKVSetIfUnset // Set a key-value pair if not already set
	MsgTKVDelete     // Delete one or more keys
	MsgTKVGet        // Get a value by key
	MsgTKVHas        // Check if a key exists
	MsgTKVPing       // Check the connection
)
