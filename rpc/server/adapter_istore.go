package server

import (
	"github.com/ValentinKolb/twinkle/lib/store"
	"github.com/ValentinKolb/twinkle/rpc/common"
)

func NewIStoreServerAdapter() IRPCServerAdapter {
	return &iStoreServerAdapterImpl{}
}

type iStoreServerAdapterImpl struct{}

func (adapter *iStoreServerAdapterImpl) Handle(req *common.Request, store store.IStore) (common.Response, error) {
	// Check for nil store
	if store == nil {
		return common.Response{}, common.NewError(common.ErrCSomethingWrong, "handler: store is nil")
	}

	// Handle different commands
	switch req.Cmd {
	case common.CmdPing:
		return common.NewOKResponse(nil), nil
	case common.CmdGet:
		if val, found := store.Get(req.Key); found {
			return common.NewOKResponse(val), nil
		}
		return common.NewNotFoundResponse(), nil
	case common.CmdSet:
		store.Set(req.Key, req.Value)
		return common.NewOKResponse(nil), nil
	case common.CmdUnset:
		store.Unset(req.Key)
		return common.NewOKResponse(nil), nil
	default:
		// the codec never produces other commands
		return common.Response{}, common.NewError(common.ErrCSomethingWrong, "unsupported command %s", req.Cmd)
	}
}
