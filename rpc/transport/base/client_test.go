package base

import (
	"context"
	"errors"
	"github.com/ValentinKolb/twinkle/rpc/common"
	"github.com/ValentinKolb/twinkle/rpc/transport"
	"net"
	"sync/atomic"
	"testing"
	"time"
)

// replyFrame builds a reply datagram with the token of the request at bytes 1..17
func replyFrame(pkt *common.RawPacket) []byte {
	if pkt.Amt < 17 {
		return nil
	}
	resp := make([]byte, 17)
	resp[0] = byte(common.StatusOK)
	copy(resp[1:], pkt.Body[1:17])
	return resp
}

func newClient(t *testing.T, endpoints []string, timeoutMs, retries int) transport.IRPCClientTransport {
	t.Helper()
	c := NewBaseClientTransport(&loopbackConnector{}, newTestLogger(t).Logger("client"))
	err := c.Connect(common.ClientConfig{
		Endpoints:          endpoints,
		TimeoutMillisecond: timeoutMs,
		RetryCount:         retries,
	})
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func tokenRequest(token common.Token) []byte {
	req := make([]byte, 17)
	req[0] = byte(common.CmdPing)
	copy(req[1:], token[:])
	return req
}

func TestClientSendCorrelatesByToken(t *testing.T) {
	addr, _, _ := serve(t, testServerConfig(), replyFrame)
	c := newClient(t, []string{addr.String()}, 2000, 1)

	done := make(chan error, 50)
	for i := 0; i < 50; i++ {
		go func(i int) {
			var token common.Token
			token[0] = byte(i)
			token[15] = 0xff
			resp, err := c.Send(context.Background(), token, tokenRequest(token))
			if err != nil {
				done <- err
				return
			}
			if common.Token(resp[1:17]) != token {
				done <- errors.New("reply for a different token")
				return
			}
			done <- nil
		}(i)
	}
	for i := 0; i < 50; i++ {
		if err := <-done; err != nil {
			t.Error(err)
		}
	}
}

func TestClientTimeoutAndRetry(t *testing.T) {
	// a server that swallows the first two datagrams
	var seen atomic.Int64
	addr, _, _ := serve(t, testServerConfig(), func(pkt *common.RawPacket) []byte {
		if seen.Add(1) <= 2 {
			return nil
		}
		return replyFrame(pkt)
	})

	var token common.Token
	token[0] = 7

	// two attempts are not enough
	c := newClient(t, []string{addr.String()}, 100, 2)
	_, err := c.Send(context.Background(), token, tokenRequest(token))
	if !errors.Is(err, transport.ErrTimeout) {
		t.Fatalf("expected ErrTimeout after 2 attempts, got %v", err)
	}

	// the third datagram is answered
	if _, err := c.Send(context.Background(), token, tokenRequest(token)); err != nil {
		t.Errorf("expected reply on third datagram, got %v", err)
	}
}

func TestClientContextCancel(t *testing.T) {
	// nothing listens on this socket's peer, requests can only time out
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer pc.Close()

	c := newClient(t, []string{pc.LocalAddr().String()}, 0, 5)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = c.Send(ctx, common.Token{}, tokenRequest(common.Token{}))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context deadline, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("Send ignored the context for %s", time.Since(start))
	}
}

func TestClientConnectErrors(t *testing.T) {
	c := NewBaseClientTransport(&loopbackConnector{}, newTestLogger(t).Logger("client"))
	if err := c.Connect(common.ClientConfig{}); err == nil {
		t.Error("expected error without endpoints")
	}
	if err := c.Connect(common.ClientConfig{Endpoints: []string{"not a host:port:x"}}); err == nil {
		t.Error("expected error when no endpoint connects")
	}
}

func TestClientClose(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer pc.Close()

	c := NewBaseClientTransport(&loopbackConnector{}, newTestLogger(t).Logger("client"))
	if err := c.Connect(common.ClientConfig{Endpoints: []string{pc.LocalAddr().String()}}); err != nil {
		t.Fatal(err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), common.Token{}, tokenRequest(common.Token{}))
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	c.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, transport.ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Send did not return after Close")
	}
}
