package lockmgr

import (
	"bytes"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/shengyf2/sqliteredis/lib/store"
)

var Logger = logger.GetLogger("lockmgr")

type lockMgrImpl struct {
	store store.IStore
}

func NewLockManager(store store.IStore) ILockManager {
	return &lockMgrImpl{
		store: store,
	}
}

func (lm *lockMgrImpl) AcquireLock(key string, ttl time.Duration) (bool, []byte, error) {
	ownerID, err := generateOwnerID()
	if err != nil {
		return false, nil, err
	}

	created, err := lm.store.SetIfUnset(key, ownerID, ttl)
	if err != nil {
		Logger.Warningf("acquire %s: %v", key, err)
		return false, nil, err
	}
	if !created {
		return false, nil, nil
	}

	// a retried SetIfUnset may report success for a key someone else holds
	current, found, err := lm.store.Get(key)
	switch {
	case err != nil:
		return false, nil, err
	case !found || !bytes.Equal(current, ownerID):
		Logger.Debugf("acquire %s: key is held by another owner", key)
		return false, nil, nil
	}
	return true, ownerID, nil
}

func (lm *lockMgrImpl) ReleaseLock(key string, ownerID []byte) (bool, error) {
	current, found, err := lm.store.Get(key)
	if err != nil {
		return false, err
	}
	if !found {
		// expired or never taken
		return true, nil
	}
	if !bytes.Equal(ownerID, current) {
		return false, nil
	}
	if err := lm.store.Delete(key); err != nil {
		return false, err
	}
	return true, nil
}
