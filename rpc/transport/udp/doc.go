// Package udp implements the twinkle transports over UDP sockets.
//
// The server binds one unconnected socket (host:port, port 0 picks a free port) and
// replies to the source address of every request. Each client endpoint uses its own
// connected socket, so the kernel filters datagrams from other peers.
package udp
