package bstore

import (
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/shengyf2/sqliteredis/lib/store"
)

var Logger = logger.GetLogger("store")

// Options configure the badger database.
type Options struct {
	Dir      string // data directory, ignored for in-memory stores
	InMemory bool   // keep everything in memory (tests)
}

type storeImpl struct {
	db *badger.DB
}

// Open opens (or creates) the badger database described by opts.
func Open(opts Options) (store.IStore, error) {
	bOpts := badger.DefaultOptions(opts.Dir).
		WithInMemory(opts.InMemory).
		WithLogger(Logger)
	if opts.InMemory {
		bOpts = bOpts.WithDir("").WithValueDir("")
	}
	db, err := badger.Open(bOpts)
	if err != nil {
		return nil, store.Errorf(store.RetCUnavailable, "open badger at %q: %v", opts.Dir, err)
	}
	return &storeImpl{db: db}, nil
}

func wrap(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, badger.ErrDBClosed) {
		return store.Errorf(store.RetCClosed, "badger %s %q: %v", op, key, err)
	}
	return store.Errorf(store.RetCInternalError, "badger %s %q: %v", op, key, err)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Set(key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	return wrap("set", key, err)
}

func (s *storeImpl) SetIfUnset(key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		return false, store.NewError(store.RetCInvalidOperation, "ttl must not be negative")
	}
	written := false
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		e := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ceilSecond(ttl))
		}
		if err := txn.SetEntry(e); err != nil {
			return err
		}
		written = true
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, wrap("setifunset", key, err)
	}
	return written, nil
}

// ceilSecond rounds d up to whole seconds.
func ceilSecond(d time.Duration) time.Duration {
	if rem := d % time.Second; rem != 0 {
		return d - rem + time.Second
	}
	return d
}

func (s *storeImpl) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
	return wrap("delete", keys[0], err)
}

func (s *storeImpl) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrap("get", key, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

func (s *storeImpl) Has(key string) (bool, error) {
	_, ok, err := s.Get(key)
	return ok, err
}

func (s *storeImpl) Ping() error {
	if s.db.IsClosed() {
		return store.NewError(store.RetCClosed, "badger store is closed")
	}
	return nil
}

func (s *storeImpl) Close() error {
	if s.db.IsClosed() {
		return nil
	}
	return wrap("close", "", s.db.Close())
}
