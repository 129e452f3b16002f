package server

import (
	"bytes"
	"errors"
	"github.com/ValentinKolb/twinkle/lib/store/lstore"
	"github.com/ValentinKolb/twinkle/rpc/common"
	"testing"
)

func TestIStoreAdapter(t *testing.T) {
	adapter := NewIStoreServerAdapter()
	s := lstore.NewLocalStore()

	steps := []struct {
		name string
		req  common.Request
		want common.Response
	}{
		{"Ping", common.NewPingRequest(), common.NewOKResponse(nil)},
		{"GetMiss", common.NewGetRequest([]byte("a")), common.NewNotFoundResponse()},
		{"Set", common.NewSetRequest([]byte("a"), []byte("bc")), common.NewOKResponse(nil)},
		{"GetHit", common.NewGetRequest([]byte("a")), common.NewOKResponse([]byte("bc"))},
		{"Overwrite", common.NewSetRequest([]byte("a"), []byte("xyz")), common.NewOKResponse(nil)},
		{"GetOverwritten", common.NewGetRequest([]byte("a")), common.NewOKResponse([]byte("xyz"))},
		{"Unset", common.NewUnsetRequest([]byte("a")), common.NewOKResponse(nil)},
		{"UnsetAgain", common.NewUnsetRequest([]byte("a")), common.NewOKResponse(nil)},
		{"GetAfterUnset", common.NewGetRequest([]byte("a")), common.NewNotFoundResponse()},
		{"SetEmptyValue", common.NewSetRequest([]byte("e"), []byte{}), common.NewOKResponse(nil)},
		{"GetEmptyValue", common.NewGetRequest([]byte("e")), common.NewOKResponse([]byte{})},
	}

	// steps share the store and run in order
	for _, step := range steps {
		resp, err := adapter.Handle(&step.req, s)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", step.name, err)
		}
		if resp.Status != step.want.Status || !bytes.Equal(resp.Value, step.want.Value) {
			t.Errorf("%s: got %s %q, want %s %q", step.name, resp.Status, resp.Value, step.want.Status, step.want.Value)
		}
	}
}

func TestIStoreAdapterErrors(t *testing.T) {
	adapter := NewIStoreServerAdapter()

	req := common.Request{Cmd: 0x42}
	if _, err := adapter.Handle(&req, lstore.NewLocalStore()); !errors.Is(err, common.ErrSomethingWrong) {
		t.Errorf("expected ErrSomethingWrong for unknown command, got %v", err)
	}

	ping := common.NewPingRequest()
	if _, err := adapter.Handle(&ping, nil); !errors.Is(err, common.ErrSomethingWrong) {
		t.Errorf("expected ErrSomethingWrong for nil store, got %v", err)
	}
}
