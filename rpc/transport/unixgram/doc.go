// Package unixgram implements the twinkle transports over unix datagram sockets.
// The endpoint is a socket path. Clients bind a temporary socket of their own so the
// server has an address to reply to, it is removed when the transport is closed.
package unixgram
