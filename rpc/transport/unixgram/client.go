package unixgram

import (
	"fmt"
	"github.com/ValentinKolb/twinkle/rpc/transport"
	"github.com/ValentinKolb/twinkle/rpc/transport/base"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
	"net"
	"os"
	"path/filepath"
)

// clientConnector implements the IClientConnector interface for unix datagram sockets
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "unixgram"
}

// Connect binds a private socket in the temp dir, the server needs a named source to reply to
func (c *clientConnector) Connect(endpoint string) (net.Conn, error) {
	localPath := filepath.Join(os.TempDir(), fmt.Sprintf("twinkle-%s.sock", uuid.NewString()))

	conn, err := net.DialUnix("unixgram",
		&net.UnixAddr{Name: localPath, Net: "unixgram"},
		&net.UnixAddr{Name: endpoint, Net: "unixgram"})
	if err != nil {
		os.Remove(localPath)
		return nil, err
	}

	return &socketConn{UnixConn: conn, path: localPath}, nil
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewUnixgramClientTransport creates a new unix datagram client transport
func NewUnixgramClientTransport(log logger.ILogger) transport.IRPCClientTransport {
	return base.NewBaseClientTransport(&clientConnector{}, log)
}
