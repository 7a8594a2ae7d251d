// Package vfs defines the contracts an embedded SQL engine expects from a
// storage backend: the path-level IVFS, the per-handle IFile and the IOS
// pass-through calls every backend must answer. Flag and lock constants use
// the numeric values of the host engine so they can be handed across without
// translation.
//
// The package also provides a Registry, an ordered set of named IVFS values
// with exactly one default. Layers that wrap an existing backend find the
// current default, keep a typed reference to it and register themselves as
// the new default.
//
// Errors returned by implementations should be *Error values carrying a
// ResultCode from the host vocabulary. CodeOf maps any error to the code the
// host engine would see.
package vfs
