package udp

import (
	"github.com/ValentinKolb/twinkle/rpc/transport"
	"github.com/ValentinKolb/twinkle/rpc/transport/base"
	"github.com/lni/dragonboat/v4/logger"
	"net"
)

// clientConnector implements the IClientConnector interface for UDP sockets
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "udp"
}

func (c *clientConnector) Connect(endpoint string) (net.Conn, error) {
	return net.Dial("udp", endpoint)
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewUDPClientTransport creates a new UDP client transport
func NewUDPClientTransport(log logger.ILogger) transport.IRPCClientTransport {
	return base.NewBaseClientTransport(&clientConnector{}, log)
}
