package client

import (
	"context"
	"github.com/ValentinKolb/twinkle/rpc/common"
	"github.com/ValentinKolb/twinkle/rpc/transport"
)

// NewRPCClient creates a new client for a twinkle server
// The function takes a config and a transport as parameters and connects the transport
func NewRPCClient(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
) (*RPCClient, error) {

	// Connect the transport
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &RPCClient{
		config:    config,
		transport: transport,
	}, nil
}

// RPCClient sends ping, get, set and unset requests and waits for their replies.
// It is safe for concurrent use.
type RPCClient struct {
	config    common.ClientConfig
	transport transport.IRPCClientTransport
}

// Ping checks that the server answers
func (c *RPCClient) Ping(ctx context.Context) error {
	_, err := invokeRPCRequest(ctx, common.NewPingRequest(), c.transport)
	return err
}

// Get returns the value for a key. The boolean return value indicates whether a value for the key was found.
func (c *RPCClient) Get(ctx context.Context, key []byte) (value []byte, found bool, err error) {
	resp, err := invokeRPCRequest(ctx, common.NewGetRequest(key), c.transport)
	if err != nil {
		return nil, false, err
	}
	if resp.Status == common.StatusNotFound {
		return nil, false, nil
	}
	if resp.Value == nil {
		resp.Value = []byte{}
	}
	return resp.Value, true, nil
}

// Set inserts or overwrites a key–value pair
func (c *RPCClient) Set(ctx context.Context, key, value []byte) error {
	_, err := invokeRPCRequest(ctx, common.NewSetRequest(key, value), c.transport)
	return err
}

// Unset removes a key–value pair, removing an absent key succeeds as well
func (c *RPCClient) Unset(ctx context.Context, key []byte) error {
	_, err := invokeRPCRequest(ctx, common.NewUnsetRequest(key), c.transport)
	return err
}

// Close closes the underlying transport
func (c *RPCClient) Close() error {
	return c.transport.Close()
}
