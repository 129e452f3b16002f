package base

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/twinkle/lib/queue"
	"github.com/ValentinKolb/twinkle/rpc/common"
	"github.com/ValentinKolb/twinkle/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/sync/errgroup"
	"net"
	"time"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates the packet socket and returns it
	Listen(config common.ServerConfig) (net.PacketConn, error)

	// GetName returns the name of the transport type (e.g., "udp", "unixgram")
	GetName() string
}

// readBufferSetter is implemented by *net.UDPConn and *net.UnixConn
type readBufferSetter interface {
	SetReadBuffer(bytes int) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the datagram pipeline:
//
//	socket -> ingress -> bounded queue -> dispatch workers -> socket
//
// Ingress is the only reader of the socket. It never decodes, it only copies the
// received bytes out of its receive buffer and enqueues them without blocking.
type serverTransport struct {
	connector IServerConnector
	handler   transport.ServerHandleFunc
	config    common.ServerConfig
	conn      net.PacketConn
	queue     *queue.Bounded[*common.RawPacket]
	log       logger.ILogger
	warn      *common.RateLimitedLogger

	received   *metrics.Counter
	dropped    *metrics.Counter
	sent       *metrics.Counter
	oversize   *metrics.Counter
	readErrors *metrics.Counter
	sendErrors *metrics.Counter
}

// -----------------------------------------------------------
// Transport Factory Method (used for udp, unixgram)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport. Metrics are registered in set.
func NewBaseServerTransport(connector IServerConnector, log logger.ILogger, set *metrics.Set) transport.IRPCServerTransport {
	t := &serverTransport{
		connector:  connector,
		log:        log,
		warn:       common.NewRateLimitedLogger(log, time.Second),
		received:   set.GetOrCreateCounter(`twinkle_packets_total{stage="received"}`),
		dropped:    set.GetOrCreateCounter(`twinkle_packets_total{stage="dropped"}`),
		sent:       set.GetOrCreateCounter(`twinkle_packets_total{stage="sent"}`),
		oversize:   set.GetOrCreateCounter(`twinkle_packets_total{stage="parse_error"}`),
		readErrors: set.GetOrCreateCounter(`twinkle_socket_errors_total{op="read"}`),
		sendErrors: set.GetOrCreateCounter(`twinkle_socket_errors_total{op="write"}`),
	}

	set.GetOrCreateGauge("twinkle_queue_length", func() float64 {
		if q := t.queue; q != nil {
			return float64(q.Len())
		}
		return 0
	})

	return t
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Bind(config common.ServerConfig) (net.Addr, error) {
	t.config = config

	// Create the packet socket using the connector
	conn, err := t.connector.Listen(config)
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s socket on %s: %w", t.connector.GetName(), config.Endpoint, err)
	}

	if config.ReadBufferSize > 0 {
		if rb, ok := conn.(readBufferSetter); ok {
			if err := rb.SetReadBuffer(config.ReadBufferSize); err != nil {
				t.log.Warningf("failed to set read buffer to %d bytes: %v", config.ReadBufferSize, err)
			}
		}
	}

	t.conn = conn
	t.queue = queue.NewBounded[*common.RawPacket](config.QueueSize)
	return conn.LocalAddr(), nil
}

func (t *serverTransport) Serve(ctx context.Context) error {
	if t.conn == nil {
		return errors.New("transport is not bound")
	}
	if t.handler == nil {
		return errors.New("no handler registered")
	}

	workers := t.config.Workers
	if workers < 1 {
		workers = 1
	}

	t.log.Infof("serving %s on %s (queue %d, %d workers)",
		t.connector.GetName(), t.conn.LocalAddr(), t.queue.Cap(), workers)

	g, gctx := errgroup.WithContext(ctx)

	// closing the socket is the only way to unblock ReadFrom
	g.Go(func() error {
		<-gctx.Done()
		return t.conn.Close()
	})

	g.Go(t.ingress)

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			t.dispatch()
			return nil
		})
	}

	err := g.Wait()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	t.log.Infof("%s transport stopped (received %d, dropped %d, sent %d)",
		t.connector.GetName(), t.received.Get(), t.dropped.Get(), t.sent.Get())
	return err
}

// --------------------------------------------------------------------------
// Pipeline
// --------------------------------------------------------------------------

// ingress reads datagrams until the socket is closed, then closes the queue
// so the dispatch workers drain it and stop.
func (t *serverTransport) ingress() error {
	defer t.queue.Close()

	// one spare byte: a read that fills it was truncated by the kernel (unix datagrams may exceed 64 KiB)
	buf := make([]byte, common.MaxDatagramSize+1)
	for {
		n, addr, err := t.conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			t.readErrors.Inc()
			t.warn.Warningf("failed to read datagram: %v", err)
			continue
		}
		t.received.Inc()

		if n > common.MaxDatagramSize {
			t.oversize.Inc()
			t.warn.Warningf("dropping oversize datagram from %s (more than %d bytes)", addr, common.MaxDatagramSize)
			continue
		}

		// only the n received bytes are copied, the buffer is reused for the next datagram
		body := make([]byte, n)
		copy(body, buf[:n])

		if !t.queue.TryPush(&common.RawPacket{Source: addr, Body: body, Amt: n}) {
			t.dropped.Inc()
			t.warn.Warningf("ingress queue full (%d), dropping datagram from %s", t.queue.Cap(), addr)
		}
	}
}

// dispatch handles queued packets until the queue is closed and drained
func (t *serverTransport) dispatch() {
	for pkt := range t.queue.Recv() {
		resp := t.handler(pkt)
		if resp == nil {
			continue
		}

		if _, err := t.conn.WriteTo(resp, pkt.Source); err != nil {
			if errors.Is(err, net.ErrClosed) {
				// shutting down, the reply is lost like any other datagram
				continue
			}
			t.sendErrors.Inc()
			t.warn.Warningf("failed to send reply to %s: %v", pkt.Source, err)
			continue
		}
		t.sent.Inc()
	}
}
