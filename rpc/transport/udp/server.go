package udp

import (
	"github.com/ValentinKolb/twinkle/rpc/common"
	"github.com/ValentinKolb/twinkle/rpc/transport"
	"github.com/ValentinKolb/twinkle/rpc/transport/base"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"net"
)

// serverConnector implements the IServerConnector interface for UDP sockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "udp"
}

func (c *serverConnector) Listen(config common.ServerConfig) (net.PacketConn, error) {
	return net.ListenPacket("udp", config.Endpoint)
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewUDPServerTransport creates a new UDP server transport
func NewUDPServerTransport(log logger.ILogger, set *metrics.Set) transport.IRPCServerTransport {
	return base.NewBaseServerTransport(&serverConnector{}, log, set)
}
