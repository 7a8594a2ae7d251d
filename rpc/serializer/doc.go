// Package serializer encodes the rpc Message for the wire. All
// implementations satisfy IRPCSerializer and are stateless, so one instance
// may be shared by any number of goroutines.
//
// Implementations:
//
//   - binary: flag based format that only writes present fields. It keeps
//     empty and absent byte slices apart, which the store protocol relies on
//     (an empty block value is not a miss). This is the default.
//
//   - msgpack: compact and self describing, the same encoding the vfs uses
//     for its metadata records.
//
//   - json: human readable, useful when debugging with the http transport.
//
//   - gob: Go's own format. Kept for comparison in the benchmarks.
//
// Client and server must agree on the serializer. ByName resolves the names
// accepted by the CLI flags.
package serializer
