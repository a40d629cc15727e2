package gateway

import (
	"errors"
	"io"
	"net"

	"github.com/rvaleri/shardfs/internal/logger"
	"github.com/rvaleri/shardfs/internal/protocol"
)

// Client-facing reply texts.
const (
	replyUnknownCommand = "Error: unknown command"
	replyBadCommand     = "Error: invalid command format"
	replyDirNotFound    = "Error: directory not found"
	replyNoFiles        = "No files found in the specified directory"
)

type conn struct {
	server *Server
	conn   net.Conn
}

// serve runs the per-connection command loop: read one command, dispatch
// it, send the complete response (including any proxied transfer), then
// wait for the next command. Only client-socket I/O failure or
// disconnect ends the loop; every per-command failure still produces a
// well-formed reply.
func (c *conn) serve() {
	defer c.conn.Close()
	logger.Debug("gateway: client connected from %s", c.conn.RemoteAddr())

	for {
		raw, err := protocol.ReadCommand(c.conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Debug("gateway: read command: %v", err)
			}
			return
		}

		cmd := protocol.ParseCommand(raw)
		logger.Debug("gateway: %s command from %s", cmd.Verb, c.conn.RemoteAddr())

		if err := c.dispatch(cmd); err != nil {
			logger.Debug("gateway: %s: %v", cmd.Verb, err)
			return
		}
	}
}

// dispatch routes one command. The returned error means the client
// socket itself failed; everything else is absorbed into the reply.
func (c *conn) dispatch(cmd protocol.Command) error {
	switch cmd.Verb {
	case "downlf":
		return c.handleDownlf(cmd.Args)
	case "downltar":
		return c.handleDownltar(cmd.Args)
	case "uploadf":
		return c.handleUploadf(cmd.Args)
	case "removef":
		return c.handleRemovef(cmd.Args)
	case "dispfnames":
		return c.handleDispfnames(cmd.Args)
	default:
		return protocol.WriteCommand(c.conn, replyUnknownCommand)
	}
}
