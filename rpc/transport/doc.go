// Package transport defines the interfaces for datagram communication between the
// twinkle server and its clients. Implementations differ only in the socket type
// (udp, unixgram), the pipeline itself lives in the base package.
//
// Key Components:
//
//   - IRPCServerTransport: binds the packet socket and runs the receive and dispatch
//     loops, handing every datagram to a ServerHandleFunc.
//
//   - IRPCClientTransport: sends request datagrams and correlates replies by token.
package transport
