package serializer

import (
	"testing"

	"github.com/shengyf2/sqliteredis/rpc/common"
)

// benchmarkMessages returns the message shapes that dominate vfs traffic
func benchmarkMessages() map[string]common.Message {
	return map[string]common.Message{
		"GetRequest":   {MsgType: common.MsgTKVGet, Key: "some/database/file.db:12345"},
		"BlockWrite":   {MsgType: common.MsgTKVSet, Key: "some/database/file.db:12345", Value: make([]byte, 4096)},
		"BlockRead":    {MsgType: common.MsgTKVGet, Value: make([]byte, 4096), Ok: true},
		"LargeBlock":   {MsgType: common.MsgTKVSet, Key: "some/database/file.db:1", Value: make([]byte, 64*1024)},
		"GuardAcquire": {MsgType: common.MsgTKVSetIfUnset, Key: "file.db:lock:guard", Value: []byte("8c4a6f1e-1d2b"), TTL: 5000},
		"Truncate":     {MsgType: common.MsgTKVDelete, Keys: []string{"f:10", "f:11", "f:12", "f:13", "f:14", "f:15"}},
	}
}

// BenchmarkSerialize benchmarks serialization for all implementations with various message types
func BenchmarkSerialize(b *testing.B) {
	for name, factory := range testSerializers {
		for msgName, msg := range benchmarkMessages() {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if _, err := serializer.Serialize(msg); err != nil {
						b.Fatalf("Failed to serialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkDeserialize benchmarks deserialization and reports the encoded size
func BenchmarkDeserialize(b *testing.B) {
	for name, factory := range testSerializers {
		for msgName, msg := range benchmarkMessages() {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				data, err := serializer.Serialize(msg)
				if err != nil {
					b.Fatalf("Failed to serialize: %v", err)
				}
				b.ReportMetric(float64(len(data)), "bytes")
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					var out common.Message
					if err := serializer.Deserialize(data, &out); err != nil {
						b.Fatalf("Failed to deserialize: %v", err)
					}
				}
			})
		}
	}
}
