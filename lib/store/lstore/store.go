package lstore

import (
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/shengyf2/sqliteredis/lib/store"
)

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiration
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

type storeImpl struct {
	data   *xsync.MapOf[string, entry]
	now    func() time.Time
	closed atomic.Bool
}

// NewLocalStore creates a new local store instance using the wall clock.
func NewLocalStore() store.IStore {
	return NewLocalStoreWithClock(time.Now)
}

// NewLocalStoreWithClock creates a new local store whose TTLs are evaluated
// against now.
func NewLocalStoreWithClock(now func() time.Time) store.IStore {
	return &storeImpl{
		data: xsync.NewMapOf[string, entry](),
		now:  now,
	}
}

// load returns the live entry for key and removes it if it has expired.
func (s *storeImpl) load(key string) (entry, bool) {
	e, ok := s.data.Load(key)
	if !ok {
		return entry{}, false
	}
	if e.expired(s.now()) {
		s.data.Compute(key, func(old entry, loaded bool) (entry, bool) {
			// only drop what is still expired, a concurrent writer may have replaced it
			return old, !loaded || old.expired(s.now())
		})
		return entry{}, false
	}
	return e, true
}

func (s *storeImpl) checkOpen() error {
	if s.closed.Load() {
		return store.NewError(store.RetCClosed, "local store is closed")
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Set(key string, value []byte) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.data.Store(key, entry{value: clone(value)})
	return nil
}

func (s *storeImpl) SetIfUnset(key string, value []byte, ttl time.Duration) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	if ttl < 0 {
		return false, store.NewError(store.RetCInvalidOperation, "ttl must not be negative")
	}

	written := false
	s.data.Compute(key, func(old entry, loaded bool) (entry, bool) {
		now := s.now()
		if loaded && !old.expired(now) {
			return old, false
		}
		written = true
		e := entry{value: clone(value)}
		if ttl > 0 {
			e.expiresAt = now.Add(ttl)
		}
		return e, false
	})
	return written, nil
}

func (s *storeImpl) Delete(keys ...string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	for _, key := range keys {
		s.data.Delete(key)
	}
	return nil
}

func (s *storeImpl) Get(key string) ([]byte, bool, error) {
	if err := s.checkOpen(); err != nil {
		return nil, false, err
	}
	e, ok := s.load(key)
	if !ok {
		return nil, false, nil
	}
	return clone(e.value), true, nil
}

func (s *storeImpl) Has(key string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	_, ok := s.load(key)
	return ok, nil
}

func (s *storeImpl) Ping() error {
	return s.checkOpen()
}

func (s *storeImpl) Close() error {
	s.closed.Store(true)
	return nil
}

// clone copies b so callers can never alias stored values.
func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
