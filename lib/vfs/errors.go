package vfs

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Result Codes
// --------------------------------------------------------------------------

// ResultCode is a status of the host engine's error vocabulary. Extended codes
// carry their primary code in the low byte.
type ResultCode int

const (
	OK       ResultCode = 0
	ERROR    ResultCode = 1
	BUSY     ResultCode = 5
	READONLY ResultCode = 8
	IOERR    ResultCode = 10
	NOTFOUND ResultCode = 12
	FULL     ResultCode = 13
	CANTOPEN ResultCode = 14
	MISUSE   ResultCode = 21
	NOLFS    ResultCode = 22

	IOERR_READ         = IOERR | 1<<8
	IOERR_SHORT_READ   = IOERR | 2<<8
	IOERR_WRITE        = IOERR | 3<<8
	IOERR_FSYNC        = IOERR | 4<<8
	IOERR_TRUNCATE     = IOERR | 6<<8
	IOERR_FSTAT        = IOERR | 7<<8
	IOERR_UNLOCK       = IOERR | 8<<8
	IOERR_RDLOCK       = IOERR | 9<<8
	IOERR_DELETE       = IOERR | 10<<8
	IOERR_ACCESS       = IOERR | 13<<8
	IOERR_LOCK         = IOERR | 15<<8
	IOERR_CLOSE        = IOERR | 16<<8
	IOERR_DELETE_NOENT = IOERR | 23<<8
)

var codeNames = map[ResultCode]string{
	OK:                 "OK",
	ERROR:              "ERROR",
	BUSY:               "BUSY",
	READONLY:           "READONLY",
	IOERR:              "IOERR",
	NOTFOUND:           "NOTFOUND",
	FULL:               "FULL",
	CANTOPEN:           "CANTOPEN",
	MISUSE:             "MISUSE",
	NOLFS:              "NOLFS",
	IOERR_READ:         "IOERR_READ",
	IOERR_SHORT_READ:   "IOERR_SHORT_READ",
	IOERR_WRITE:        "IOERR_WRITE",
	IOERR_FSYNC:        "IOERR_FSYNC",
	IOERR_TRUNCATE:     "IOERR_TRUNCATE",
	IOERR_FSTAT:        "IOERR_FSTAT",
	IOERR_UNLOCK:       "IOERR_UNLOCK",
	IOERR_RDLOCK:       "IOERR_RDLOCK",
	IOERR_DELETE:       "IOERR_DELETE",
	IOERR_ACCESS:       "IOERR_ACCESS",
	IOERR_LOCK:         "IOERR_LOCK",
	IOERR_CLOSE:        "IOERR_CLOSE",
	IOERR_DELETE_NOENT: "IOERR_DELETE_NOENT",
}

func (c ResultCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("RESULT(%d)", int(c))
}

// Primary strips the extended part of c.
func (c ResultCode) Primary() ResultCode {
	return c & 0xff
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is returned by IVFS and IFile implementations. Code is what the host
// engine sees, Op names the failing call and Err is the underlying cause.
type Error struct {
	Code ResultCode
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("vfs %s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("vfs %s: %s: %v", e.Op, e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new *Error.
func NewError(code ResultCode, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// CodeOf returns the result code the host engine should see for err:
// OK for nil, the code of the first *Error in the chain, IOERR otherwise.
func CodeOf(err error) ResultCode {
	if err == nil {
		return OK
	}
	var vErr *Error
	if errors.As(err, &vErr) {
		return vErr.Code
	}
	return IOERR
}

// IsBusy reports whether err is a retryable lock conflict.
func IsBusy(err error) bool {
	return CodeOf(err).Primary() == BUSY
}
