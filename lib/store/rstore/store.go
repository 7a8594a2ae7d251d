package rstore

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/redis/go-redis/v9"
	"github.com/shengyf2/sqliteredis/lib/store"
)

var Logger = logger.GetLogger("store")

const DefaultTimeout = 5 * time.Second

// Options configure the redis connection.
type Options struct {
	Addr     string        // host:port of the server
	Username string        // optional ACL user
	Password string        // optional password
	DB       int           // database number
	Timeout  time.Duration // per command timeout, defaults to DefaultTimeout
}

type storeImpl struct {
	client  *redis.Client
	timeout time.Duration
}

// NewDialer returns a store.Dialer opening a new connection per call.
func NewDialer(opts Options) store.Dialer {
	return func() (store.IStore, error) {
		return Dial(opts)
	}
}

// Dial connects to redis and verifies the connection with a PING, so an
// unreachable server is reported here and not on first use.
func Dial(opts Options) (store.IStore, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.Timeout,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
		PoolSize:     1,
		MaxRetries:   -1,
	})
	s := &storeImpl{client: client, timeout: opts.Timeout}
	if err := s.Ping(); err != nil {
		_ = client.Close()
		return nil, err
	}
	Logger.Debugf("connected to redis at %s (db %d)", opts.Addr, opts.DB)
	return s, nil
}

// ctx returns a context bounded by the per command timeout.
func (s *storeImpl) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// wrap translates a redis error into a *store.Error.
func wrap(op, key string, err error) error {
	if err == nil {
		return nil
	}
	code := store.RetCInternalError
	var netErr net.Error
	switch {
	case errors.Is(err, redis.ErrClosed):
		code = store.RetCClosed
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		code = store.RetCUnavailable
	}
	return store.Errorf(code, "redis %s %q: %v", op, key, err)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Set(key string, value []byte) error {
	ctx, cancel := s.ctx()
	defer cancel()
	return wrap("SET", key, s.client.Set(ctx, key, value, 0).Err())
}

func (s *storeImpl) SetIfUnset(key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		return false, store.NewError(store.RetCInvalidOperation, "ttl must not be negative")
	}
	ctx, cancel := s.ctx()
	defer cancel()
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	return ok, wrap("SETNX", key, err)
}

func (s *storeImpl) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := s.ctx()
	defer cancel()
	return wrap("DEL", keys[0], s.client.Del(ctx, keys...).Err())
}

func (s *storeImpl) Get(key string) ([]byte, bool, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrap("GET", key, err)
	}
	return value, true, nil
}

func (s *storeImpl) Has(key string) (bool, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	n, err := s.client.Exists(ctx, key).Result()
	return n > 0, wrap("EXISTS", key, err)
}

func (s *storeImpl) Ping() error {
	ctx, cancel := s.ctx()
	defer cancel()
	return wrap("PING", "", s.client.Ping(ctx).Err())
}

func (s *storeImpl) Close() error {
	return wrap("CLOSE", "", s.client.Close())
}
