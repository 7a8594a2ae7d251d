package kvvfs

import (
	"fmt"

	"github.com/shengyf2/sqliteredis/lib/store"
	"github.com/vmihailenco/msgpack/v5"
)

// FileMetadata is the per file record stored under "<prefix>:meta".
type FileMetadata struct {
	// Size is the logical file size in bytes.
	Size int64 `msgpack:"size" yaml:"size"`
	// BlockSize is fixed when the file is created.
	BlockSize int `msgpack:"block_size" yaml:"block_size"`
	// HighWater is the number of block slots that may hold data. It is raised
	// before blocks beyond it are written and lowered only by truncate, so
	// every block key of the file is in [0, HighWater).
	HighWater int64 `msgpack:"high_water" yaml:"high_water"`
	// Version is incremented on every metadata write.
	Version uint64 `msgpack:"version" yaml:"version"`
}

func encodeMeta(m FileMetadata) ([]byte, error) {
	return msgpack.Marshal(&m)
}

func decodeMeta(b []byte) (FileMetadata, error) {
	var m FileMetadata
	if err := msgpack.Unmarshal(b, &m); err != nil {
		return FileMetadata{}, fmt.Errorf("%w: metadata: %v", ErrProtocol, err)
	}
	if !validBlockSize(m.BlockSize) || m.Size < 0 || m.HighWater < 0 {
		return FileMetadata{}, fmt.Errorf("%w: metadata: block size %d, size %d, high water %d",
			ErrProtocol, m.BlockSize, m.Size, m.HighWater)
	}
	return m, nil
}

// loadMeta reads the metadata of a file. found is false if the file does not exist.
func loadMeta(s store.IStore, k keys) (meta FileMetadata, found bool, err error) {
	raw, ok, err := s.Get(k.meta())
	if err != nil || !ok {
		return FileMetadata{}, false, err
	}
	meta, err = decodeMeta(raw)
	return meta, err == nil, err
}

// storeMeta bumps the version of m and writes it.
func storeMeta(s store.IStore, k keys, m *FileMetadata) error {
	m.Version++
	raw, err := encodeMeta(*m)
	if err != nil {
		return err
	}
	return s.Set(k.meta(), raw)
}

// createMeta writes m only if the file does not exist yet. It returns the
// metadata that is stored afterwards.
func createMeta(s store.IStore, k keys, m FileMetadata) (FileMetadata, error) {
	m.Version = 1
	raw, err := encodeMeta(m)
	if err != nil {
		return FileMetadata{}, err
	}
	created, err := s.SetIfUnset(k.meta(), raw, 0)
	if err != nil {
		return FileMetadata{}, err
	}
	if created {
		return m, nil
	}
	// another handle created it first
	existing, found, err := loadMeta(s, k)
	if err != nil {
		return FileMetadata{}, err
	}
	if !found {
		return FileMetadata{}, fmt.Errorf("%w: metadata vanished during create", ErrProtocol)
	}
	return existing, nil
}
