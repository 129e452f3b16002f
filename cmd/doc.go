// Package cmd implements the command-line interface for the twinkle datagram
// key-value store. It provides a hierarchical command structure with operations
// for running the server, talking to it as a client and inspecting snapshots.
//
// The package is organized into several subpackages:
//
//   - serve: Starts and configures the twinkle server
//   - kv: Client commands (ping, get, set, unset) and the perf benchmark
//   - snapshot: Offline inspection of snapshot files (dump, stats)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set as environment variable TWINKLE_<FLAG>, .env and
// .env.local in the working directory are loaded on startup.
//
// See twinkle -help for a list of all commands.
package cmd
