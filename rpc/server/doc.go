// Package server ties the datagram transport, the wire codec and the store together.
//
// For every datagram the transport hands over, the server decodes an instruction,
// executes it through an IRPCServerAdapter against the store and encodes the reply
// with the token of the request. Malformed datagrams are logged (rate limited) and
// dropped, the client never receives an error datagram.
//
// On Init the server restores the store from an existing snapshot file. An unreadable
// snapshot aborts the start. While running, a snapshot.Snapshotter persists the store
// every interval and once more after the transport stopped. When a metrics endpoint
// is configured, the VictoriaMetrics set is exposed on /metrics.
package server
