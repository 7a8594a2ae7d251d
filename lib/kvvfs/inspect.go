package kvvfs

import (
	"sort"
	"time"

	"github.com/shengyf2/sqliteredis/lib/store"
	"github.com/shengyf2/sqliteredis/lib/vfs"
)

// HolderInfo describes one entry of a lock marker.
type HolderInfo struct {
	ID        string    `yaml:"id"`
	Refreshed time.Time `yaml:"refreshed"`
	Live      bool      `yaml:"live"`
}

// FileInfo is a point in time view of a file's records, read without any lock.
type FileInfo struct {
	Name    string                  `yaml:"name"`
	Meta    FileMetadata            `yaml:"meta"`
	Locks   map[string][]HolderInfo `yaml:"locks,omitempty"`
	Guarded bool                    `yaml:"guarded"`
}

// Stat reads the metadata and lock markers of name. Holders are classified
// as live against lease and now.
func Stat(conn store.IStore, name string, lease time.Duration, now time.Time) (FileInfo, error) {
	k := keys{prefix: name}
	meta, found, err := loadMeta(conn, k)
	if err != nil {
		return FileInfo{}, err
	}
	if !found {
		return FileInfo{}, ErrNotExist
	}

	info := FileInfo{Name: name, Meta: meta, Locks: map[string][]HolderInfo{}}
	m := &lockMachine{store: conn, keys: k, lease: lease}
	for level := vfs.LockShared; level <= vfs.LockExclusive; level++ {
		mk, err := m.loadMarker(level)
		if err != nil {
			return FileInfo{}, err
		}
		for id, stamp := range mk.Holders {
			info.Locks[level.String()] = append(info.Locks[level.String()], HolderInfo{
				ID:        id,
				Refreshed: time.Unix(0, stamp).UTC(),
				Live:      m.alive(stamp, now),
			})
		}
		sort.Slice(info.Locks[level.String()], func(i, j int) bool {
			return info.Locks[level.String()][i].ID < info.Locks[level.String()][j].ID
		})
	}
	if info.Guarded, err = conn.Has(k.guard()); err != nil {
		return FileInfo{}, err
	}
	return info, nil
}
