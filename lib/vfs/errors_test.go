package vfs

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOf(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want ResultCode
	}{
		{"nil", nil, OK},
		{"plain", cause, IOERR},
		{"direct", NewError(CANTOPEN, "open", cause), CANTOPEN},
		{"wrapped", fmt.Errorf("ctx: %w", NewError(IOERR_SHORT_READ, "read", nil)), IOERR_SHORT_READ},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtendedCodes(t *testing.T) {
	if IOERR_SHORT_READ != 522 || IOERR_DELETE_NOENT != 5898 || IOERR_LOCK != 3850 {
		t.Fatalf("extended codes drifted: %d %d %d", IOERR_SHORT_READ, IOERR_DELETE_NOENT, IOERR_LOCK)
	}
	if IOERR_TRUNCATE.Primary() != IOERR {
		t.Errorf("Primary() = %v", IOERR_TRUNCATE.Primary())
	}
	if !IsBusy(NewError(BUSY, "lock", nil)) || IsBusy(errors.New("x")) {
		t.Error("IsBusy misclassified")
	}
	if got := NewError(BUSY, "lock", nil).Error(); got != "vfs lock: BUSY" {
		t.Errorf("Error() = %q", got)
	}
}

func TestAtomicCapFor(t *testing.T) {
	if AtomicCapFor(4096) != IocapAtomic4K || AtomicCapFor(512) != IocapAtomic512 || AtomicCapFor(65536) != IocapAtomic64K {
		t.Error("wrong atomic flag")
	}
	if AtomicCapFor(1000) != 0 || AtomicCapFor(128*1024) != 0 {
		t.Error("non power of two sizes must not claim atomicity")
	}
}
