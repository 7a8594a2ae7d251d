package lstore

import (
	"testing"
	"time"

	"github.com/shengyf2/sqliteredis/lib/store"
	"github.com/shengyf2/sqliteredis/lib/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.RunIStoreTests(t, "LocalStore", func(t *testing.T) (store.IStore, storetest.Advance) {
		clock := storetest.NewFakeClock(time.Unix(1700000000, 0))
		return NewLocalStoreWithClock(clock.Now), clock.Advance
	})
}

func TestSharedDialer(t *testing.T) {
	s := NewLocalStore()
	dial := store.SharedDialer(s)

	a, _ := dial()
	b, _ := dial()
	if err := a.Set("k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if err := a.Set("k", []byte("w")); err == nil {
		t.Error("closed connection accepted a write")
	}
	v, ok, err := b.Get("k")
	if err != nil || !ok || string(v) != "v" {
		t.Errorf("Get through second connection = %q, %v, %v", v, ok, err)
	}
}
