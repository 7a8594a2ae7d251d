package kvvfs

import (
	"testing"
	"time"

	"github.com/shengyf2/sqliteredis/lib/store"
	"github.com/shengyf2/sqliteredis/lib/store/lstore"
)

func TestConfigValidate(t *testing.T) {
	dial := store.SharedDialer(lstore.NewLocalStore())
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"minimal", Config{Dialer: dial, LeaseTimeout: time.Second}, false},
		{"no lease", Config{Dialer: dial}, true},
		{"no dialer", Config{LeaseTimeout: time.Second}, true},
		{"block size not a power of two", Config{Dialer: dial, LeaseTimeout: time.Second, BlockSize: 1000}, true},
		{"block size too large", Config{Dialer: dial, LeaseTimeout: time.Second, BlockSize: 128 * 1024}, true},
		{"block size 64K", Config{Dialer: dial, LeaseTimeout: time.Second, BlockSize: 64 * 1024}, false},
		{"refresh too slow", Config{Dialer: dial, LeaseTimeout: time.Second, RefreshInterval: time.Second}, true},
		{"negative prefix", Config{Dialer: dial, LeaseTimeout: time.Second, MaxPrefixLen: -1}, true},
		{"negative max blocks", Config{Dialer: dial, LeaseTimeout: time.Second, MaxBlocks: -1}, true},
		{"max blocks at limit", Config{Dialer: dial, LeaseTimeout: time.Second, MaxBlocks: MaxBlocksLimit}, false},
		{"max blocks above limit", Config{Dialer: dial, LeaseTimeout: time.Second, MaxBlocks: MaxBlocksLimit + 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{LeaseTimeout: 30 * time.Second}.withDefaults()
	if cfg.Name != DefaultName || cfg.BlockSize != DefaultBlockSize || cfg.MaxPrefixLen != DefaultMaxPrefixLen || cfg.MaxBlocks != DefaultMaxBlocks {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.RefreshInterval != 10*time.Second || cfg.GuardTTL != DefaultGuardTTL || cfg.Clock == nil {
		t.Errorf("unexpected timing defaults: refresh %s guard %s", cfg.RefreshInterval, cfg.GuardTTL)
	}
}
