package kvvfs

import (
	"errors"
	"fmt"
	"time"

	"github.com/shengyf2/sqliteredis/lib/store"
)

const (
	DefaultName         = "kvvfs"
	DefaultBlockSize    = 4096
	DefaultMaxPrefixLen = 256
	DefaultGuardTTL     = 5 * time.Second
	DefaultMaxBlocks    = 1 << 24

	MinBlockSize = 512
	MaxBlockSize = 64 * 1024

	// MaxBlocksLimit caps Config.MaxBlocks, so a file never exceeds 2^47 bytes.
	MaxBlocksLimit = 1 << 31
)

// Config configures the VFS. Dialer and LeaseTimeout are required.
type Config struct {
	// Name is the name the VFS registers under.
	Name string
	// Dialer opens one store connection per open file. Per operation
	// timeouts are a property of the connection it returns.
	Dialer store.Dialer
	// BlockSize is used for newly created files. Existing files keep the
	// block size they were created with.
	BlockSize int
	// MaxBlocks is the number of blocks a file may span. Writes and
	// truncates past BlockSize*MaxBlocks fail with FULL. Removing a file
	// costs one key delete per block up to its high-water mark.
	MaxBlocks int64
	// MaxPrefixLen is the longest file name (in bytes) accepted by Open.
	MaxPrefixLen int
	// LeaseTimeout is how long a lock marker stays live without a refresh.
	LeaseTimeout time.Duration
	// RefreshInterval is how old a marker may get before a handle rewrites
	// it. Defaults to LeaseTimeout/3.
	RefreshInterval time.Duration
	// GuardTTL bounds how long a crashed process can block lock changes.
	GuardTTL time.Duration
	// Clock returns the current time, time.Now if nil.
	Clock func() time.Time
}

// withDefaults returns a copy of c with zero values replaced by defaults.
func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.BlockSize == 0 {
		c.BlockSize = DefaultBlockSize
	}
	if c.MaxPrefixLen == 0 {
		c.MaxPrefixLen = DefaultMaxPrefixLen
	}
	if c.MaxBlocks == 0 {
		c.MaxBlocks = DefaultMaxBlocks
	}
	if c.GuardTTL == 0 {
		c.GuardTTL = DefaultGuardTTL
	}
	if c.RefreshInterval == 0 {
		c.RefreshInterval = c.LeaseTimeout / 3
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}

// Validate checks c after defaults have been applied.
func (c Config) Validate() error {
	c = c.withDefaults()
	var errs []error
	if c.Dialer == nil {
		errs = append(errs, errors.New("a store dialer is required"))
	}
	if c.LeaseTimeout <= 0 {
		errs = append(errs, errors.New("lease timeout must be set explicitly and be positive"))
	}
	if !validBlockSize(c.BlockSize) {
		errs = append(errs, fmt.Errorf("block size %d must be a power of two between %d and %d", c.BlockSize, MinBlockSize, MaxBlockSize))
	}
	if c.MaxBlocks < 1 || c.MaxBlocks > MaxBlocksLimit {
		errs = append(errs, fmt.Errorf("max blocks %d must be between 1 and %d", c.MaxBlocks, MaxBlocksLimit))
	}
	if c.MaxPrefixLen < 1 {
		errs = append(errs, fmt.Errorf("max prefix length %d must be positive", c.MaxPrefixLen))
	}
	if c.GuardTTL < 0 || c.RefreshInterval < 0 {
		errs = append(errs, errors.New("guard ttl and refresh interval must not be negative"))
	}
	if c.RefreshInterval >= c.LeaseTimeout && c.LeaseTimeout > 0 {
		errs = append(errs, fmt.Errorf("refresh interval %s must be shorter than the lease timeout %s", c.RefreshInterval, c.LeaseTimeout))
	}
	return errors.Join(errs...)
}

func validBlockSize(size int) bool {
	return size >= MinBlockSize && size <= MaxBlockSize && size&(size-1) == 0
}
