package store

import (
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Dialer opens a new, exclusively owned connection to a store.
// Every open virtual file calls the dialer once and closes the result when the
// file is closed.
type Dialer func() (IStore, error)

// IStore is the minimal key–value protocol the virtual file layer is built on.
// Every call blocks until the store acknowledged it or the implementation
// specific timeout elapsed.
// A missing key is never an error: Get reports it through loaded == false.
type IStore interface {
	// Set inserts or updates a key–value pair without expiration.
	Set(key string, value []byte) (err error)
	// SetIfUnset inserts a key–value pair only if the key does not exist.
	// A ttl > 0 removes the key after that duration. ok reports whether the
	// value was written.
	SetIfUnset(key string, value []byte, ttl time.Duration) (ok bool, err error)
	// Delete removes the given keys. Absent keys are ignored.
	Delete(keys ...string) (err error)
	// Get returns the value for a key. The boolean return value indicates whether a value for the key was found.
	Get(key string) (value []byte, loaded bool, err error)
	// Has returns whether a key exists in the store.
	Has(key string) (loaded bool, err error)
	// Ping returns once the store acknowledged a round trip. All writes issued
	// before Ping are acknowledged when it returns.
	Ping() (err error)
	// Close releases the connection. The store must not be used afterwards.
	Close() (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("KVStoreError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new KVStoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// Errorf creates a new KVStoreError with a formatted message.
func Errorf(code RetCode, format string, args ...interface{}) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by underlying database.
	RetCInvalidOperation                    // 3: Invalid operation.
	RetCUnavailable                         // 4: The store could not be reached or timed out.
	RetCClosed                              // 5: The store was already closed.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCUnavailable:
		return "Unavailable"
	case RetCClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}
