package kvvfs

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shengyf2/sqliteredis/lib/lockmgr"
	"github.com/shengyf2/sqliteredis/lib/store"
	"github.com/shengyf2/sqliteredis/lib/vfs"
	"github.com/vmihailenco/msgpack/v5"
)

// lockMarker is the record stored under "<prefix>:lock:<level>". It maps
// holder ids to the unix nano time of their last refresh.
type lockMarker struct {
	Holders map[string]int64 `msgpack:"holders"`
}

// blockers lists, per requested level, the levels another live holder must
// not hold. Markers are cumulative (a holder at EXCLUSIVE also has SHARED,
// RESERVED and PENDING markers), so SHARED in the EXCLUSIVE row means "any
// other holder at all".
var blockers = map[vfs.LockLevel][]vfs.LockLevel{
	vfs.LockShared:    {vfs.LockReserved, vfs.LockPending, vfs.LockExclusive},
	vfs.LockReserved:  {vfs.LockReserved, vfs.LockExclusive},
	vfs.LockPending:   {vfs.LockReserved, vfs.LockPending, vfs.LockExclusive},
	vfs.LockExclusive: {vfs.LockShared, vfs.LockReserved, vfs.LockPending, vfs.LockExclusive},
}

// lockMachine is the lock state of one handle. It is not safe for concurrent use.
type lockMachine struct {
	store        store.IStore
	keys         keys
	guard        lockmgr.ILockManager
	holder       string
	now          func() time.Time
	lease        time.Duration
	refreshEvery time.Duration
	guardTTL     time.Duration

	level     vfs.LockLevel
	refreshed time.Time
}

func newLockMachine(s store.IStore, k keys, cfg Config) *lockMachine {
	return &lockMachine{
		store:        s,
		keys:         k,
		guard:        lockmgr.NewLockManager(s),
		holder:       uuid.NewString(),
		now:          cfg.Clock,
		lease:        cfg.LeaseTimeout,
		refreshEvery: cfg.RefreshInterval,
		guardTTL:     cfg.GuardTTL,
	}
}

// --------------------------------------------------------------------------
// Marker records
// --------------------------------------------------------------------------

func (m *lockMachine) loadMarker(level vfs.LockLevel) (lockMarker, error) {
	mk := lockMarker{Holders: map[string]int64{}}
	raw, ok, err := m.store.Get(m.keys.lock(level))
	if err != nil || !ok {
		return mk, err
	}
	if err := msgpack.Unmarshal(raw, &mk); err != nil {
		return mk, fmt.Errorf("%w: %s marker: %v", ErrProtocol, level, err)
	}
	if mk.Holders == nil {
		mk.Holders = map[string]int64{}
	}
	return mk, nil
}

// storeMarker writes mk, or deletes the record once nobody holds the level.
func (m *lockMachine) storeMarker(level vfs.LockLevel, mk lockMarker) error {
	if len(mk.Holders) == 0 {
		return m.store.Delete(m.keys.lock(level))
	}
	raw, err := msgpack.Marshal(&mk)
	if err != nil {
		return err
	}
	return m.store.Set(m.keys.lock(level), raw)
}

func (m *lockMachine) alive(stamp int64, now time.Time) bool {
	return now.Sub(time.Unix(0, stamp)) < m.lease
}

// prune drops dead holders from mk.
func (m *lockMachine) prune(mk lockMarker, now time.Time) {
	for id, stamp := range mk.Holders {
		if !m.alive(stamp, now) {
			delete(mk.Holders, id)
		}
	}
}

// othersAt reports whether a live holder other than us holds any of levels.
func (m *lockMachine) othersAt(now time.Time, levels ...vfs.LockLevel) (bool, error) {
	for _, level := range levels {
		mk, err := m.loadMarker(level)
		if err != nil {
			return false, err
		}
		for id, stamp := range mk.Holders {
			if id != m.holder && m.alive(stamp, now) {
				return true, nil
			}
		}
	}
	return false, nil
}

// stamp adds (or refreshes) our entry in the marker of level.
func (m *lockMachine) stamp(level vfs.LockLevel, now time.Time) error {
	mk, err := m.loadMarker(level)
	if err != nil {
		return err
	}
	m.prune(mk, now)
	mk.Holders[m.holder] = now.UnixNano()
	return m.storeMarker(level, mk)
}

// unstamp removes our entry from the marker of level.
func (m *lockMachine) unstamp(level vfs.LockLevel, now time.Time) error {
	mk, err := m.loadMarker(level)
	if err != nil {
		return err
	}
	m.prune(mk, now)
	delete(mk.Holders, m.holder)
	return m.storeMarker(level, mk)
}

// withGuard runs fn while holding the file's guard lock. A busy guard is a
// lock conflict.
//
// The guard is a lease of guardTTL and its release is a Get followed by a
// Delete, so fn must finish well within guardTTL. Past that a second handle
// may take the guard while fn still runs; such overruns are logged and
// counted in kvvfs_guard_overruns_total.
func (m *lockMachine) withGuard(fn func() error) error {
	ok, owner, err := m.guard.AcquireLock(m.keys.guard(), m.guardTTL)
	if err != nil {
		return fmt.Errorf("acquire guard: %w", err)
	}
	if !ok {
		lockConflicts.Inc()
		return ErrLockConflict
	}
	start := m.now()
	defer func() {
		if elapsed := m.now().Sub(start); elapsed >= m.guardTTL {
			guardOverruns.Inc()
			Logger.Warningf("guard of %s held for %s, longer than its ttl %s", m.keys.prefix, elapsed, m.guardTTL)
		}
		released, err := m.guard.ReleaseLock(m.keys.guard(), owner)
		switch {
		case err != nil:
			Logger.Warningf("releasing guard of %s failed, it expires after %s: %v", m.keys.prefix, m.guardTTL, err)
		case !released:
			Logger.Warningf("guard of %s expired and was taken by another handle", m.keys.prefix)
		}
	}()
	return fn()
}

// --------------------------------------------------------------------------
// Transitions
// --------------------------------------------------------------------------

// Level returns the level this handle holds.
func (m *lockMachine) Level() vfs.LockLevel {
	return m.level
}

// Lock escalates to target one level at a time. If a level cannot be
// granted the handle keeps the last level it reached (PENDING when waiting
// for readers to leave before EXCLUSIVE) and ErrLockConflict is returned.
func (m *lockMachine) Lock(target vfs.LockLevel) error {
	if target <= m.level {
		return nil
	}
	if target > vfs.LockExclusive || (m.level == vfs.LockNone && target != vfs.LockShared) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, m.level, target)
	}
	if err := m.Refresh(); err != nil {
		return err
	}

	err := m.withGuard(func() error {
		now := m.now()
		for next := m.level + 1; next <= target; next++ {
			busy, err := m.othersAt(now, blockers[next]...)
			if err != nil {
				return err
			}
			if busy {
				lockConflicts.Inc()
				return ErrLockConflict
			}
			if err := m.stamp(next, now); err != nil {
				return err
			}
			if m.level == vfs.LockNone {
				m.refreshed = now
			}
			m.level = next
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrLockConflict) {
		Logger.Warningf("lock %s to %s failed at %s: %v", m.keys.prefix, target, m.level, err)
	}
	return err
}

// Unlock releases every level above target. target must be SHARED or NONE.
func (m *lockMachine) Unlock(target vfs.LockLevel) error {
	if target >= m.level {
		return nil
	}
	if target > vfs.LockShared || target < vfs.LockNone {
		return fmt.Errorf("%w: unlock to %s", ErrInvalidTransition, target)
	}
	return m.withGuard(func() error {
		now := m.now()
		for m.level > target {
			if err := m.unstamp(m.level, now); err != nil {
				return err
			}
			m.level--
		}
		return nil
	})
}

// Refresh rewrites our markers when they are older than the refresh
// interval. It returns ErrLockLost (and drops to NONE) if a marker expired
// or was taken away. A busy guard postpones the refresh to the next call.
func (m *lockMachine) Refresh() error {
	if m.level == vfs.LockNone {
		return nil
	}
	now := m.now()
	age := now.Sub(m.refreshed)
	if age < m.refreshEvery {
		return nil
	}
	if age >= m.lease {
		return m.lost(fmt.Errorf("%w: last refresh %s ago", ErrLockLost, age))
	}

	err := m.withGuard(func() error {
		for level := vfs.LockShared; level <= m.level; level++ {
			mk, err := m.loadMarker(level)
			if err != nil {
				return err
			}
			stamp, ok := mk.Holders[m.holder]
			if !ok || !m.alive(stamp, now) {
				return fmt.Errorf("%w: %s marker no longer names us", ErrLockLost, level)
			}
			m.prune(mk, now)
			mk.Holders[m.holder] = now.UnixNano()
			if err := m.storeMarker(level, mk); err != nil {
				return err
			}
		}
		m.refreshed = now
		return nil
	})
	switch {
	case errors.Is(err, ErrLockConflict):
		return nil
	case errors.Is(err, ErrLockLost):
		return m.lost(err)
	}
	return err
}

// lost forgets all levels after the lease was lost.
func (m *lockMachine) lost(err error) error {
	Logger.Warningf("%s: %v", m.keys.prefix, err)
	m.level = vfs.LockNone
	return err
}

// CheckReserved reports whether another live holder is at RESERVED or above.
func (m *lockMachine) CheckReserved() (bool, error) {
	if err := m.Refresh(); err != nil {
		return false, err
	}
	return m.othersAt(m.now(), vfs.LockReserved, vfs.LockPending, vfs.LockExclusive)
}
