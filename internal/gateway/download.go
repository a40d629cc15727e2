package gateway

import (
	"errors"

	"github.com/rvaleri/shardfs/internal/logger"
	"github.com/rvaleri/shardfs/internal/protocol"
	"github.com/rvaleri/shardfs/internal/shard"
	"github.com/rvaleri/shardfs/internal/store"
)

// handleDownlf streams up to two requested files, one transfer frame
// each, in request order. An unsupported extension or bad marker yields
// a -1 frame for that item without any node connection being attempted,
// and processing continues with the next item.
func (c *conn) handleDownlf(args []string) error {
	if len(args) == 0 {
		return protocol.WriteNotFound(c.conn)
	}
	paths := args
	if len(paths) > 2 {
		paths = paths[:2]
	}

	for _, markerPath := range paths {
		if err := c.sendFile(markerPath); err != nil {
			return err
		}
	}
	return nil
}

func (c *conn) sendFile(markerPath string) error {
	owner, err := c.server.table.Route(markerPath)
	if err != nil {
		logger.Debug("gateway: downlf %s: %v", markerPath, err)
		return protocol.WriteNotFound(c.conn)
	}

	if owner.Local() {
		return c.sendLocalFile(markerPath)
	}

	rewritten, err := shard.RewriteMarker(markerPath, c.server.table.Local(), owner)
	if err != nil {
		logger.Debug("gateway: downlf %s: %v", markerPath, err)
		return protocol.WriteNotFound(c.conn)
	}
	return c.relayFrame(owner, protocol.VerbGetFile+" "+rewritten)
}

func (c *conn) sendLocalFile(markerPath string) error {
	path, err := shard.Resolve(c.server.store.Root(), c.server.table.Local(), markerPath)
	if err != nil {
		logger.Debug("gateway: downlf %s: %v", markerPath, err)
		return protocol.WriteNotFound(c.conn)
	}

	f, size, err := c.server.store.Open(path)
	if err != nil {
		if !errors.Is(err, store.ErrNotExist) {
			logger.Warn("gateway: downlf %s: %v", markerPath, err)
		}
		return protocol.WriteNotFound(c.conn)
	}
	defer f.Close()

	logger.Debug("gateway: sending local %s (%d bytes)", markerPath, size)
	return protocol.WriteFrame(c.conn, f, size)
}
