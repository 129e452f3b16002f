package server

import (
	"bytes"
	"context"
	"github.com/ValentinKolb/twinkle/lib/snapshot"
	"github.com/ValentinKolb/twinkle/rpc/common"
	"github.com/ValentinKolb/twinkle/rpc/transport"
	"github.com/ValentinKolb/twinkle/rpc/transport/udp"
	"github.com/ValentinKolb/twinkle/rpc/transport/unixgram"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var testToken = common.Token([]byte("iiiijjjjkkkkllll"))

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

type testServer struct {
	*RPCServer
	set    *metrics.Set
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// stop cancels the server and waits for Run to return
func (ts *testServer) stop(t *testing.T) {
	t.Helper()
	ts.cancel()
	select {
	case <-ts.done:
		if ts.err != nil {
			t.Errorf("Run returned %v", ts.err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func startServer(t *testing.T, config common.ServerConfig) *testServer {
	t.Helper()
	return startServerWith(t, config, udp.NewUDPServerTransport)
}

func startServerWith(t *testing.T, config common.ServerConfig, newTransport func(logger.ILogger, *metrics.Set) transport.IRPCServerTransport) *testServer {
	t.Helper()

	sink, err := common.NewLogSink(io.Discard, "debug")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(sink.Close)

	set := metrics.NewSet()
	s := NewRPCServer(config, newTransport(sink.Logger("transport"), set), sink, set)
	if err := s.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ts := &testServer{RPCServer: s, set: set, cancel: cancel, done: make(chan struct{})}
	go func() {
		ts.err = s.Run(ctx)
		close(ts.done)
	}()
	t.Cleanup(func() {
		cancel()
		<-ts.done
	})
	return ts
}

func testConfig() common.ServerConfig {
	config := common.DefaultServerConfig()
	config.Endpoint = "127.0.0.1:0"
	config.SnapshotPath = ""
	config.SnapshotIntervalSeconds = 0
	return config
}

func dial(t *testing.T, addr net.Addr) net.Conn {
	t.Helper()
	conn, err := net.Dial("udp", addr.String())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// exchange sends one datagram and returns the reply, nil if none arrives in time
func exchange(t *testing.T, conn net.Conn, req []byte, wait time.Duration) []byte {
	t.Helper()
	if _, err := conn.Write(req); err != nil {
		t.Fatal(err)
	}
	conn.SetReadDeadline(time.Now().Add(wait))
	buf := make([]byte, common.MaxDatagramSize)
	n, err := conn.Read(buf)
	if err != nil {
		return nil
	}
	return buf[:n]
}

func frame(parts ...[]byte) []byte {
	var buf []byte
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return buf
}

func keyed(cmd byte, key string, value string) []byte {
	return frame([]byte{cmd}, testToken[:], []byte{byte(len(key) >> 8), byte(len(key))}, []byte(key), []byte(value))
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestProtocol(t *testing.T) {
	ts := startServer(t, testConfig())
	conn := dial(t, ts.Addr())

	steps := []struct {
		name string
		req  []byte
		want []byte
	}{
		{"Ping", frame([]byte{0x01}, testToken[:]), frame([]byte{0x01}, testToken[:])},
		{"GetMiss", keyed(0x02, "a", ""), frame([]byte{0x02}, testToken[:])},
		{"SetSplitsKey", frame([]byte{0x03}, testToken[:], []byte{0x00, 0x01}, []byte("abc")), frame([]byte{0x01}, testToken[:])},
		{"GetHit", keyed(0x02, "a", ""), frame([]byte{0x01}, testToken[:], []byte("bc"))},
		{"Unset", keyed(0x04, "a", ""), frame([]byte{0x01}, testToken[:])},
		{"UnsetIdempotent", keyed(0x04, "a", ""), frame([]byte{0x01}, testToken[:])},
		{"GetAfterUnset", keyed(0x02, "a", ""), frame([]byte{0x02}, testToken[:])},
	}

	for _, step := range steps {
		got := exchange(t, conn, step.req, 2*time.Second)
		if !bytes.Equal(got, step.want) {
			t.Errorf("%s: got %x, want %x", step.name, got, step.want)
		}
	}

	if v, found := ts.Store().Get([]byte("a")); found {
		t.Errorf("expected key a to be gone, got %s", v)
	}
}

func TestTokenEcho(t *testing.T) {
	ts := startServer(t, testConfig())
	conn := dial(t, ts.Addr())

	for i := 0; i < 20; i++ {
		var token common.Token
		for j := range token {
			token[j] = byte(i*16 + j)
		}
		req := frame([]byte{0x03}, token[:], []byte{0x00, 0x01}, []byte("kv"))
		got := exchange(t, conn, req, 2*time.Second)
		if len(got) != 17 || !bytes.Equal(got[1:], token[:]) {
			t.Errorf("token %s not echoed: %x", token, got)
		}
	}
}

func TestMalformedDatagramsAreDropped(t *testing.T) {
	ts := startServer(t, testConfig())
	conn := dial(t, ts.Addr())

	malformed := [][]byte{
		{},
		{0x01},
		frame([]byte{0x02}, testToken[:]),
		frame([]byte{0x03}, testToken[:], []byte{0x00}),
		frame([]byte{0x09}, testToken[:], []byte{0x00, 0x01}, []byte("a")),
		frame([]byte{0x02}, testToken[:], []byte{0x00, 0x09}, []byte("a")),
	}
	for _, req := range malformed {
		if got := exchange(t, conn, req, 100*time.Millisecond); got != nil {
			t.Errorf("expected no reply for %x, got %x", req, got)
		}
	}

	// the server keeps answering
	if got := exchange(t, conn, frame([]byte{0x01}, testToken[:]), 2*time.Second); !bytes.Equal(got, frame([]byte{0x01}, testToken[:])) {
		t.Errorf("ping after malformed datagrams failed: %x", got)
	}

	parseErrors := ts.set.GetOrCreateCounter(`twinkle_packets_total{stage="parse_error"}`).Get()
	if parseErrors != uint64(len(malformed)) {
		t.Errorf("expected %d parse errors, got %d", len(malformed), parseErrors)
	}
}

func TestOversizeUnixDatagramIsDropped(t *testing.T) {
	// short path, unix socket names are limited to about 100 bytes
	dir, err := os.MkdirTemp("", "twinkle")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	config := testConfig()
	config.Endpoint = filepath.Join(dir, "s.sock")
	ts := startServerWith(t, config, unixgram.NewUnixgramServerTransport)

	conn, err := net.DialUnix("unixgram",
		&net.UnixAddr{Name: filepath.Join(dir, "c.sock"), Net: "unixgram"},
		&net.UnixAddr{Name: config.Endpoint, Net: "unixgram"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	// a unix datagram may exceed the 64 KiB receive buffer
	oversize := keyed(0x03, "k", strings.Repeat("v", 80000))
	if got := exchange(t, conn, oversize, 200*time.Millisecond); got != nil {
		t.Errorf("expected no reply for oversize datagram, got %x", got[:min(len(got), 17)])
	}
	if _, found := ts.Store().Get([]byte("k")); found {
		t.Error("oversize datagram was executed")
	}
	if n := ts.set.GetOrCreateCounter(`twinkle_packets_total{stage="parse_error"}`).Get(); n != 1 {
		t.Errorf("expected 1 parse error, got %d", n)
	}

	// a datagram of exactly the maximum size is still served
	limit := keyed(0x03, "k", "")
	limit = append(limit, bytes.Repeat([]byte("v"), common.MaxDatagramSize-len(limit))...)
	if got := exchange(t, conn, limit, 2*time.Second); !bytes.Equal(got, frame([]byte{0x01}, testToken[:])) {
		t.Fatalf("set of maximum size: got %x", got)
	}
	if v, _ := ts.Store().Get([]byte("k")); len(v) != common.MaxDatagramSize-len(keyed(0x03, "k", "")) {
		t.Errorf("stored %d bytes, want %d", len(v), common.MaxDatagramSize-len(keyed(0x03, "k", "")))
	}
}

func TestTrailingBytesOnGetAndUnset(t *testing.T) {
	ts := startServer(t, testConfig())
	conn := dial(t, ts.Addr())

	exchange(t, conn, keyed(0x03, "k", "v"), 2*time.Second)

	if got := exchange(t, conn, keyed(0x02, "k", "trailing"), 2*time.Second); !bytes.Equal(got, frame([]byte{0x01}, testToken[:], []byte("v"))) {
		t.Errorf("get with trailing bytes: got %x", got)
	}
	if got := exchange(t, conn, keyed(0x04, "k", "trailing"), 2*time.Second); !bytes.Equal(got, frame([]byte{0x01}, testToken[:])) {
		t.Errorf("unset with trailing bytes: got %x", got)
	}
	if _, found := ts.Store().Get([]byte("k")); found {
		t.Error("unset with trailing bytes did not remove the key")
	}
}

func TestSnapshotRestore(t *testing.T) {
	config := testConfig()
	config.SnapshotPath = filepath.Join(t.TempDir(), "twinkle.snapshot")
	config.SnapshotIntervalSeconds = 3600

	ts := startServer(t, config)
	conn := dial(t, ts.Addr())
	exchange(t, conn, keyed(0x03, "persisted", "value"), 2*time.Second)
	exchange(t, conn, keyed(0x03, "removed", "value"), 2*time.Second)
	exchange(t, conn, keyed(0x04, "removed", ""), 2*time.Second)

	// stopping writes the final snapshot
	ts.stop(t)

	m, err := snapshot.ReadFile(config.SnapshotPath, false)
	if err != nil {
		t.Fatalf("snapshot not readable: %v", err)
	}
	if string(m["persisted"]) != "value" || len(m) != 1 {
		t.Errorf("unexpected snapshot content %v", m)
	}

	// a new server starts with the persisted content
	ts2 := startServer(t, config)
	if v, found := ts2.Store().Get([]byte("persisted")); !found || string(v) != "value" {
		t.Errorf("restored store misses entry: %s (found=%v)", v, found)
	}
	conn2 := dial(t, ts2.Addr())
	if got := exchange(t, conn2, keyed(0x02, "persisted", ""), 2*time.Second); !bytes.Equal(got, frame([]byte{0x01}, testToken[:], []byte("value"))) {
		t.Errorf("get after restore: got %x", got)
	}
}

func TestCorruptSnapshotIsFatal(t *testing.T) {
	config := testConfig()
	config.SnapshotPath = filepath.Join(t.TempDir(), "twinkle.snapshot")
	if _, err := snapshot.WriteFile(config.SnapshotPath, map[string][]byte{"k": []byte("v")}, true); err != nil {
		t.Fatal(err)
	}

	sink, err := common.NewLogSink(io.Discard, "info")
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()

	// written compressed, read plain: the stream does not decode
	set := metrics.NewSet()
	s := NewRPCServer(config, udp.NewUDPServerTransport(sink.Logger("transport"), set), sink, set)
	if err := s.Init(); err == nil {
		t.Fatal("expected Init to fail on an unreadable snapshot")
	}
}

func TestBindFailure(t *testing.T) {
	config := testConfig()
	config.Endpoint = "256.0.0.1:99999"

	sink, err := common.NewLogSink(io.Discard, "info")
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()

	set := metrics.NewSet()
	s := NewRPCServer(config, udp.NewUDPServerTransport(sink.Logger("transport"), set), sink, set)
	if err := s.Init(); err == nil {
		t.Fatal("expected Init to fail on an invalid endpoint")
	}
}

func TestMetricsExposition(t *testing.T) {
	ts := startServer(t, testConfig())
	conn := dial(t, ts.Addr())
	exchange(t, conn, keyed(0x03, "k", "v"), 2*time.Second)
	exchange(t, conn, keyed(0x02, "k", ""), 2*time.Second)

	var sb strings.Builder
	ts.set.WritePrometheus(&sb)
	out := sb.String()

	for _, want := range []string{
		`twinkle_requests_total{cmd="set"} 1`,
		`twinkle_requests_total{cmd="get"} 1`,
		`twinkle_store_entries 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output misses %q", want)
		}
	}
}
