package storetest

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shengyf2/sqliteredis/lib/store"
)

// Advance moves the clock of a store forward. A nil Advance skips the TTL tests.
type Advance func(d time.Duration)

// StoreFactory creates a fresh, empty store for a single sub test.
type StoreFactory func(t *testing.T) (store.IStore, Advance)

// RunIStoreTests runs the conformance suite against the stores produced by factory.
func RunIStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			s, _ := factory(t)
			testSetGet(t, s)
		})

		t.Run("Delete", func(t *testing.T) {
			s, _ := factory(t)
			testDelete(t, s)
		})

		t.Run("SetIfUnset", func(t *testing.T) {
			s, _ := factory(t)
			testSetIfUnset(t, s)
		})

		t.Run("SetIfUnsetTTL", func(t *testing.T) {
			s, advance := factory(t)
			if advance == nil {
				t.Skip("store clock cannot be advanced")
			}
			testSetIfUnsetTTL(t, s, advance)
		})

		t.Run("ConcurrentSetIfUnset", func(t *testing.T) {
			s, _ := factory(t)
			testConcurrentSetIfUnset(t, s)
		})

		t.Run("BinaryValues", func(t *testing.T) {
			s, _ := factory(t)
			testBinaryValues(t, s)
		})

		t.Run("Close", func(t *testing.T) {
			s, _ := factory(t)
			testClose(t, s)
		})
	})
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, s store.IStore) {
	if _, ok, err := s.Get("missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v; want not found", ok, err)
	}
	if err := s.Set("k", []byte("v1")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set("k", []byte("v2")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, ok, err := s.Get("k")
	if err != nil || !ok || string(v) != "v2" {
		t.Errorf("Get(k) = %q, %v, %v; want v2", v, ok, err)
	}
	if has, err := s.Has("k"); err != nil || !has {
		t.Errorf("Has(k) = %v, %v", has, err)
	}
	if err := s.Ping(); err != nil {
		t.Errorf("Ping failed: %v", err)
	}

	// returned values must not alias the stored ones
	v[0] = 'x'
	if again, _, _ := s.Get("k"); string(again) != "v2" {
		t.Errorf("stored value changed through returned slice: %q", again)
	}
}

func testDelete(t *testing.T, s store.IStore) {
	for i := 0; i < 5; i++ {
		if err := s.Set(fmt.Sprintf("k%d", i), []byte{byte(i)}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Delete("k0", "k1", "absent"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(); err != nil {
		t.Fatalf("Delete() without keys failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		has, err := s.Has(fmt.Sprintf("k%d", i))
		if err != nil {
			t.Fatal(err)
		}
		if has != (i >= 2) {
			t.Errorf("Has(k%d) = %v after delete", i, has)
		}
	}
}

func testSetIfUnset(t *testing.T, s store.IStore) {
	ok, err := s.SetIfUnset("guard", []byte("a"), 0)
	if err != nil || !ok {
		t.Fatalf("first SetIfUnset = %v, %v", ok, err)
	}
	ok, err = s.SetIfUnset("guard", []byte("b"), 0)
	if err != nil || ok {
		t.Fatalf("second SetIfUnset = %v, %v; want false", ok, err)
	}
	v, _, _ := s.Get("guard")
	if string(v) != "a" {
		t.Errorf("value = %q, want a", v)
	}
	if err := s.Delete("guard"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.SetIfUnset("guard", []byte("c"), 0); !ok {
		t.Error("SetIfUnset after delete should succeed")
	}
}

func testSetIfUnsetTTL(t *testing.T, s store.IStore, advance Advance) {
	if ok, err := s.SetIfUnset("lease", []byte("a"), 2*time.Second); err != nil || !ok {
		t.Fatalf("SetIfUnset = %v, %v", ok, err)
	}
	advance(time.Second)
	if ok, _ := s.SetIfUnset("lease", []byte("b"), 2*time.Second); ok {
		t.Fatal("lease taken over before expiry")
	}
	advance(2 * time.Second)
	if has, _ := s.Has("lease"); has {
		t.Error("expired key still reported by Has")
	}
	if ok, _ := s.SetIfUnset("lease", []byte("b"), 2*time.Second); !ok {
		t.Error("lease not reclaimable after expiry")
	}
}

func testConcurrentSetIfUnset(t *testing.T, s store.IStore) {
	const workers = 16
	var (
		wg  sync.WaitGroup
		won atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := s.SetIfUnset("race", []byte{byte(i)}, 0)
			if err != nil {
				t.Errorf("SetIfUnset failed: %v", err)
			}
			if ok {
				won.Add(1)
			}
		}(i)
	}
	wg.Wait()
	if won.Load() != 1 {
		t.Errorf("%d writers won, want exactly 1", won.Load())
	}
}

func testBinaryValues(t *testing.T, s store.IStore) {
	block := make([]byte, 4096)
	for i := range block {
		block[i] = byte(i % 251)
	}
	block[0] = 0
	if err := s.Set("db:0", block); err != nil {
		t.Fatal(err)
	}
	v, ok, err := s.Get("db:0")
	if err != nil || !ok || !bytes.Equal(v, block) {
		t.Errorf("binary round trip failed: ok %v err %v len %d", ok, err, len(v))
	}
	if err := s.Set("empty", []byte{}); err != nil {
		t.Fatal(err)
	}
	if v, ok, _ := s.Get("empty"); !ok || len(v) != 0 {
		t.Errorf("empty value = %v, %v", v, ok)
	}
}

func testClose(t *testing.T, s store.IStore) {
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Set("k", []byte("v")); err == nil {
		t.Error("Set after Close should fail")
	}
}
