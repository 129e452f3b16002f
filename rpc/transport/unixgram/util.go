package unixgram

import (
	"net"
	"os"
)

// socketConn removes the socket file of a bound unix datagram socket on Close
type socketConn struct {
	*net.UnixConn
	path string
}

func (c *socketConn) Close() error {
	err := c.UnixConn.Close()
	os.Remove(c.path)
	return err
}
