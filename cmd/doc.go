// Package cmd implements the kvvfs command-line interface. It runs the store
// server backing the layer and moves database files in and out of a store.
//
// The package is organized into several subpackages:
//
//   - serve: Commands for starting and configuring the store server
//   - file: Commands copying, inspecting and removing files stored through the layer
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set as an environment variable KVVFS_<FLAG> with
// dashes replaced by underscores (e.g. KVVFS_REDIS_ADDR), read from the
// environment, .env or .env.local.
//
// See kvvfs -help for a list of all commands.
package cmd
