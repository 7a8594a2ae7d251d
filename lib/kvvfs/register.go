package kvvfs

import (
	"sync"

	"github.com/shengyf2/sqliteredis/lib/vfs"
)

// registration is the process wide registration state: the installed VFS,
// the registry it was installed in and the default it captured.
type registration struct {
	mu       sync.Mutex
	registry *vfs.Registry
	active   *kvVFS
}

var state registration

// Register captures the current default of reg, installs a new kvvfs
// forwarding OS services to it as the new default and returns it. It may
// succeed only once per process until Unregister is called.
func Register(reg *vfs.Registry, cfg Config) (vfs.IVFS, error) {
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.active != nil {
		return nil, vfs.NewError(vfs.MISUSE, "register", ErrAlreadyRegistered)
	}
	parent := reg.Find("")
	if parent == nil {
		return nil, vfs.NewError(vfs.NOLFS, "register", ErrNoDefaultVFS)
	}
	v, err := New(parent, cfg)
	if err != nil {
		return nil, err
	}
	if err := reg.Register(v, true); err != nil {
		return nil, vfs.NewError(vfs.ERROR, "register", err)
	}

	state.registry = reg
	state.active = v.(*kvVFS)
	Logger.Infof("registered %q as default vfs, delegating to %q", v.Name(), parent.Name())
	return v, nil
}

// Unregister removes the registered kvvfs and makes the captured default the
// default again. It is a no-op if nothing is registered.
func Unregister() error {
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.active == nil {
		return nil
	}
	reg, active := state.registry, state.active
	if err := reg.Unregister(active); err != nil {
		return err
	}
	if reg.Find(active.parent.Name()) == active.parent {
		if err := reg.Register(active.parent, true); err != nil {
			return err
		}
	}
	state.registry = nil
	state.active = nil
	return nil
}

// Registered returns the registered kvvfs, or nil.
func Registered() vfs.IVFS {
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.active == nil {
		return nil
	}
	return state.active
}
