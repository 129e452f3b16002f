package transport

import (
	"context"
	"errors"
	"github.com/ValentinKolb/twinkle/rpc/common"
	"net"
)

var (
	// ErrTimeout is returned by a client transport when no reply arrived in time
	ErrTimeout = errors.New("request timed out")
	// ErrClosed is returned when the transport was closed while a request was waiting
	ErrClosed = errors.New("transport closed")
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming datagrams.
// It is called by a dispatch worker of the server transport for every queued packet
// and returns the reply datagram, or nil if nothing should be sent back.
type ServerHandleFunc func(pkt *common.RawPacket) (resp []byte)

// IRPCServerTransport is the interface for the datagram transport layer of the server
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer.
	// It must be called before Serve.
	RegisterHandler(handler ServerHandleFunc)
	// Bind opens the packet socket and returns the address it is bound to.
	// A bind failure is fatal for the server.
	Bind(config common.ServerConfig) (net.Addr, error)
	// Serve runs the receive and dispatch loops until ctx is cancelled.
	// It closes the socket on return.
	Serve(ctx context.Context) error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the datagram client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends an encoded request and waits for the reply carrying the same token.
	// Lost datagrams are retried according to the configuration.
	Send(ctx context.Context, token common.Token, req []byte) (resp []byte, err error)
	// Close closes the transport connection
	Close() error
}
