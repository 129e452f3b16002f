package server

import (
	"github.com/ValentinKolb/twinkle/lib/store"
	"github.com/ValentinKolb/twinkle/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for executing decoded requests against a store
type IRPCServerAdapter interface {
	// Handle executes a request and returns the response.
	// An error means the request could not be executed at all, no reply is sent for it.
	Handle(req *common.Request, store store.IStore) (resp common.Response, err error)
}
