package store

import (
	"sync/atomic"
	"time"
)

// SharedDialer returns a Dialer handing out connections to the same
// underlying store. Closing such a connection only invalidates the
// connection, s itself stays open. It lets in-process stores (lstore, bstore)
// be used where one connection per file is expected.
func SharedDialer(s IStore) Dialer {
	return func() (IStore, error) {
		return &sharedConn{store: s}, nil
	}
}

type sharedConn struct {
	store  IStore
	closed atomic.Bool
}

var errConnClosed = NewError(RetCClosed, "connection is closed")

func (c *sharedConn) Set(key string, value []byte) error {
	if c.closed.Load() {
		return errConnClosed
	}
	return c.store.Set(key, value)
}

func (c *sharedConn) SetIfUnset(key string, value []byte, ttl time.Duration) (bool, error) {
	if c.closed.Load() {
		return false, errConnClosed
	}
	return c.store.SetIfUnset(key, value, ttl)
}

func (c *sharedConn) Delete(keys ...string) error {
	if c.closed.Load() {
		return errConnClosed
	}
	return c.store.Delete(keys...)
}

func (c *sharedConn) Get(key string) ([]byte, bool, error) {
	if c.closed.Load() {
		return nil, false, errConnClosed
	}
	return c.store.Get(key)
}

func (c *sharedConn) Has(key string) (bool, error) {
	if c.closed.Load() {
		return false, errConnClosed
	}
	return c.store.Has(key)
}

func (c *sharedConn) Ping() error {
	if c.closed.Load() {
		return errConnClosed
	}
	return c.store.Ping()
}

func (c *sharedConn) Close() error {
	c.closed.Store(true)
	return nil
}
