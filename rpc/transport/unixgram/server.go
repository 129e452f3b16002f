package unixgram

import (
	"fmt"
	"github.com/ValentinKolb/twinkle/rpc/common"
	"github.com/ValentinKolb/twinkle/rpc/transport"
	"github.com/ValentinKolb/twinkle/rpc/transport/base"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"net"
	"os"
)

// serverConnector implements the IServerConnector interface for unix datagram sockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "unixgram"
}

func (c *serverConnector) Listen(config common.ServerConfig) (net.PacketConn, error) {
	socketPath := config.Endpoint

	// Remove existing socket file if it exists
	if err := os.RemoveAll(socketPath); err != nil {
		return nil, fmt.Errorf("failed to remove existing socket: %v", err)
	}

	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: socketPath, Net: "unixgram"})
	if err != nil {
		return nil, fmt.Errorf("failed to create unix datagram socket: %v", err)
	}

	return &socketConn{UnixConn: conn, path: socketPath}, nil
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewUnixgramServerTransport creates a new unix datagram server transport
func NewUnixgramServerTransport(log logger.ILogger, set *metrics.Set) transport.IRPCServerTransport {
	return base.NewBaseServerTransport(&serverConnector{}, log, set)
}
