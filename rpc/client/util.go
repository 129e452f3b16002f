package client

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/twinkle/rpc/codec"
	"github.com/ValentinKolb/twinkle/rpc/common"
	"github.com/ValentinKolb/twinkle/rpc/transport"
	"github.com/google/uuid"
)

// newToken returns a random correlation token (a version 4 UUID)
func newToken() common.Token {
	return common.Token(uuid.New())
}

// invokeRPCRequest is a helper function used by all client methods to send requests
// It encodes the request with a fresh token, sends it and decodes the reply.
// This method also checks that the reply carries the token of the request and that
// its status is valid for the command.
func invokeRPCRequest(ctx context.Context, req common.Request, transport transport.IRPCClientTransport) (common.Response, error) {
	token := newToken()

	// Encode the request
	reqBytes, err := codec.EncodeRequest(req, token)
	if err != nil {
		return common.Response{}, err
	}

	// Send the request
	respBytes, err := transport.Send(ctx, token, reqBytes)
	if err != nil {
		return common.Response{}, err
	}

	// Decode the response
	resp, respToken, err := codec.DecodeResponse(respBytes)
	if err != nil {
		return common.Response{}, fmt.Errorf("invalid %s reply: %w", req.Cmd, err)
	}

	if respToken != token {
		return common.Response{}, fmt.Errorf("reply token %s does not match request token %s", respToken, token)
	}

	// only a get may miss
	if resp.Status == common.StatusNotFound && req.Cmd != common.CmdGet {
		return common.Response{}, fmt.Errorf("unexpected status %s for %s", resp.Status, req.Cmd)
	}

	return resp, nil
}
