package storetest

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/shengyf2/sqliteredis/lib/store"
)

// Op names an IStore method for fault injection and call counting.
type Op string

const (
	OpGet        Op = "get"
	OpSet        Op = "set"
	OpSetIfUnset Op = "setifunset"
	OpDelete     Op = "delete"
	OpHas        Op = "has"
	OpPing       Op = "ping"
)

type fault struct {
	match func(key string) bool
	err   error
}

// FaultStore wraps an IStore, counts calls per operation and fails calls
// whose key matches a registered fault.
type FaultStore struct {
	inner  store.IStore
	mu     sync.Mutex
	faults map[Op][]fault
	calls  map[Op]int
}

// NewFaultStore wraps inner.
func NewFaultStore(inner store.IStore) *FaultStore {
	return &FaultStore{
		inner:  inner,
		faults: make(map[Op][]fault),
		calls:  make(map[Op]int),
	}
}

// FailOn makes op return err for every key accepted by match. A nil match
// fails every call.
func (f *FaultStore) FailOn(op Op, match func(key string) bool, err error) {
	if match == nil {
		match = func(string) bool { return true }
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[op] = append(f.faults[op], fault{match: match, err: err})
}

// Heal removes all registered faults.
func (f *FaultStore) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = make(map[Op][]fault)
}

// Calls returns how often op was invoked, including failed calls.
func (f *FaultStore) Calls(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// check counts the call and returns the first matching fault.
func (f *FaultStore) check(op Op, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	for _, flt := range f.faults[op] {
		if len(keys) == 0 && flt.match("") {
			return flt.err
		}
		for _, key := range keys {
			if flt.match(key) {
				return flt.err
			}
		}
	}
	return nil
}

// Dialer returns a dialer whose connections all go through f.
func (f *FaultStore) Dialer() store.Dialer {
	return store.SharedDialer(f)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (f *FaultStore) Set(key string, value []byte) error {
	if err := f.check(OpSet, key); err != nil {
		return err
	}
	return f.inner.Set(key, value)
}

func (f *FaultStore) SetIfUnset(key string, value []byte, ttl time.Duration) (bool, error) {
	if err := f.check(OpSetIfUnset, key); err != nil {
		return false, err
	}
	return f.inner.SetIfUnset(key, value, ttl)
}

func (f *FaultStore) Delete(keys ...string) error {
	if err := f.check(OpDelete, keys...); err != nil {
		return err
	}
	return f.inner.Delete(keys...)
}

func (f *FaultStore) Get(key string) ([]byte, bool, error) {
	if err := f.check(OpGet, key); err != nil {
		return nil, false, err
	}
	return f.inner.Get(key)
}

func (f *FaultStore) Has(key string) (bool, error) {
	if err := f.check(OpHas, key); err != nil {
		return false, err
	}
	return f.inner.Has(key)
}

func (f *FaultStore) Ping() error {
	if err := f.check(OpPing); err != nil {
		return err
	}
	return f.inner.Ping()
}

func (f *FaultStore) Close() error {
	return f.inner.Close()
}

// --------------------------------------------------------------------------
// Dialers
// --------------------------------------------------------------------------

// CountingDialer counts connection attempts. If Err is set every attempt
// fails with it.
type CountingDialer struct {
	dial  store.Dialer
	dials atomic.Int32
	Err   error
}

// NewCountingDialer wraps dial.
func NewCountingDialer(dial store.Dialer) *CountingDialer {
	return &CountingDialer{dial: dial}
}

// Dialer returns the counting store.Dialer.
func (c *CountingDialer) Dialer() store.Dialer {
	return func() (store.IStore, error) {
		c.dials.Add(1)
		if c.Err != nil {
			return nil, c.Err
		}
		return c.dial()
	}
}

// Dials returns the number of connection attempts so far.
func (c *CountingDialer) Dials() int {
	return int(c.dials.Load())
}

// FakeClock is a manually advanced clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a clock starting at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
