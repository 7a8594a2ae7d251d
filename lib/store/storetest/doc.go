// Package storetest provides a conformance suite every store.IStore
// implementation must pass, and a fault injecting in-memory store for tests of
// code built on top of store.IStore.
//
// Example usage:
//
//	func TestConformance(t *testing.T) {
//		storetest.RunIStoreTests(t, "MyStore", func(t *testing.T) (store.IStore, storetest.Advance) {
//			return NewMyStore(), nil
//		})
//	}
package storetest
