// Package rpc implements the datagram protocol of twinkle. It acts as the
// communication layer between clients and the server, every request and every
// reply is exactly one datagram.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the request and response types, configuration structures, and logging.
//
//   - codec: The fixed binary wire format. Decodes request datagrams into
//     instructions and encodes responses (and the client side counterparts).
//
//   - transport: Datagram socket abstractions with pluggable implementations
//     (UDP, Unix datagram sockets). The base transport owns the ingress loop,
//     the bounded queue and the dispatch workers.
//
//   - client: RPC client for ping, get, set and unset with token correlation
//     and retries.
//
//   - server: RPC server that restores the store, executes requests against it
//     and keeps it persisted with periodic snapshots.
package rpc
