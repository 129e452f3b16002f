package base

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/twinkle/rpc/codec"
	"github.com/ValentinKolb/twinkle/rpc/common"
	"github.com/ValentinKolb/twinkle/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect creates a datagram socket connected to the endpoint
	Connect(endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "udp", "unixgram")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientConnection represents a single connected datagram socket
type clientConnection struct {
	conn     net.Conn
	endpoint string
	stopCh   chan struct{} // Close signal for the reader goroutine
	inflight *xsync.MapOf[common.Token, chan []byte]
	writeMu  sync.Mutex
	parent   *clientTransport
}

// clientTransport implements the core client transport functionality
// independent of the specific socket type (udp, unixgram)
type clientTransport struct {
	connector     IClientConnector
	config        common.ClientConfig
	log           logger.ILogger
	connections   []*clientConnection
	connectionsMu sync.RWMutex
	nextConnIndex uint64 // Atomic counter for Round Robin
	readers       sync.WaitGroup
}

// -----------------------------------------------------------
// Transport Factory Method (used for udp, unixgram)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector, log logger.ILogger) transport.IRPCClientTransport {
	return &clientTransport{
		connector: connector,
		log:       log,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if len(config.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}

	// Close all existing connections
	t.closeConnections()

	t.config = config

	connections := make([]*clientConnection, 0, len(config.Endpoints))
	for _, endpoint := range config.Endpoints {
		conn, err := t.connector.Connect(endpoint)
		if err != nil {
			t.log.Warningf("failed to connect to %s: %v", endpoint, err)
			continue
		}

		clientConn := &clientConnection{
			conn:     conn,
			endpoint: endpoint,
			stopCh:   make(chan struct{}),
			inflight: xsync.NewMapOf[common.Token, chan []byte](),
			parent:   t,
		}
		connections = append(connections, clientConn)

		// Start the response reader
		t.readers.Add(1)
		go clientConn.readResponses()
	}

	if len(connections) == 0 {
		return fmt.Errorf("failed to connect to any endpoint")
	}

	t.connectionsMu.Lock()
	t.connections = connections
	t.connectionsMu.Unlock()

	t.log.Debugf("connected to %d of %d endpoints using %s transport",
		len(connections), len(config.Endpoints), t.connector.GetName())

	return nil
}

func (t *clientTransport) Send(ctx context.Context, token common.Token, req []byte) ([]byte, error) {
	var lastErr error

	// We always try at least once, and up to RetryCount times
	attempts := t.config.RetryCount
	if attempts < 1 {
		attempts = 1
	}

	// Initial backoff duration in milliseconds
	backoffMs := 50

	for i := 0; i < attempts; i++ {
		conn := t.getNextConnection()
		if conn == nil {
			// never connected or already closed
			return nil, transport.ErrClosed
		}

		data, err := conn.roundTrip(ctx, token, req, t.config.Timeout())
		if err == nil {
			return data, nil
		}

		lastErr = err
		t.log.Debugf("request %s attempt %d/%d to %s failed: %v", token, i+1, attempts, conn.endpoint, err)

		// a cancelled caller or a closed transport is not retried
		if ctx.Err() != nil || errors.Is(err, transport.ErrClosed) {
			break
		}

		if i < attempts-1 {
			// Exponential backoff with a small random jitter (+-10%)
			jitter := float64(backoffMs) * (0.9 + 0.2*rand.Float64())
			select {
			case <-time.After(time.Duration(jitter) * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoffMs *= 2
		}
	}

	// All attempts failed
	return nil, fmt.Errorf("failed to send request after %d attempts: %w", attempts, lastErr)
}

func (t *clientTransport) Close() error {
	t.closeConnections()
	t.readers.Wait()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// getNextConnection selects the next connection via Round Robin
func (t *clientTransport) getNextConnection() *clientConnection {
	t.connectionsMu.RLock()
	defer t.connectionsMu.RUnlock()

	if len(t.connections) == 0 {
		return nil
	}

	// Simple Round Robin algorithm
	var index uint64
	if len(t.connections) > 1 {
		index = atomic.AddUint64(&t.nextConnIndex, 1) % uint64(len(t.connections))
	}
	return t.connections[index]
}

// closeConnections closes all active connections
func (t *clientTransport) closeConnections() {
	t.connectionsMu.Lock()
	defer t.connectionsMu.Unlock()

	for _, conn := range t.connections {
		// Signal waiting requests and the reader goroutine to stop
		close(conn.stopCh)
		conn.conn.Close()
	}

	// Empty the list
	t.connections = nil
}

// roundTrip sends one datagram and waits for the reply with the same token
func (c *clientConnection) roundTrip(ctx context.Context, token common.Token, req []byte, timeout time.Duration) ([]byte, error) {
	// Register before writing, the reply may arrive before Write returns
	respCh := make(chan []byte, 1)
	c.inflight.Store(token, respCh)
	defer c.inflight.Delete(token)

	c.writeMu.Lock()
	_, err := c.conn.Write(req)
	c.writeMu.Unlock()
	if err != nil {
		return nil, err
	}

	// Wait for response or timeout
	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case resp := <-respCh:
		return resp, nil
	case <-timeoutCh:
		return nil, transport.ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.stopCh:
		return nil, transport.ErrClosed
	}
}

// readResponses reads reply datagrams and hands them to the waiting request by token
func (c *clientConnection) readResponses() {
	defer c.parent.readers.Done()

	buf := make([]byte, common.MaxDatagramSize)
	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			select {
			case <-c.stopCh:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			// e.g. connection refused while no server is bound, the request will time out
			c.parent.log.Debugf("read from %s failed: %v", c.endpoint, err)
			continue
		}

		token, ok := codec.ResponseToken(buf[:n])
		if !ok {
			c.parent.log.Warningf("discarding short reply (%d bytes) from %s", n, c.endpoint)
			continue
		}

		respCh, found := c.inflight.LoadAndDelete(token)
		if !found {
			// late reply of a request that already timed out
			c.parent.log.Debugf("discarding reply for unknown token %s", token)
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		select {
		case respCh <- data:
		default:
		}
	}
}
