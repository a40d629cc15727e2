package gateway

import (
	"github.com/rvaleri/shardfs/internal/logger"
	"github.com/rvaleri/shardfs/internal/protocol"
)

// handleDownltar answers a bulk-archive request with one transfer frame:
// the local extension builds its bundle in-process, an archivable remote
// extension is fetched with CREATE_TAR and relayed, and everything else
// is a -1 frame.
func (c *conn) handleDownltar(args []string) error {
	if len(args) != 1 {
		return protocol.WriteNotFound(c.conn)
	}
	ext := args[0]

	owner, err := c.server.table.ByExtension(ext)
	if err != nil || !owner.Archivable {
		logger.Debug("gateway: downltar %s rejected", ext)
		return protocol.WriteNotFound(c.conn)
	}

	if owner.Local() {
		return c.sendLocalBundle()
	}
	return c.relayFrame(owner, protocol.VerbCreateTar+" "+ext)
}

func (c *conn) sendLocalBundle() error {
	bundle, err := c.server.store.BuildBundle()
	if err != nil {
		logger.Warn("gateway: build bundle: %v", err)
		return protocol.WriteNotFound(c.conn)
	}
	defer bundle.Remove()

	f, size, err := c.server.store.Open(bundle.Path)
	if err != nil {
		logger.Warn("gateway: open bundle: %v", err)
		return protocol.WriteNotFound(c.conn)
	}
	defer f.Close()

	logger.Debug("gateway: sending local bundle (%d bytes)", size)
	return protocol.WriteFrame(c.conn, f, size)
}
