package gateway

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rvaleri/shardfs/internal/logger"
	"github.com/rvaleri/shardfs/internal/protocol"
	"github.com/rvaleri/shardfs/internal/shard"
	"github.com/rvaleri/shardfs/internal/store"
)

// handleRemovef deletes up to two files, each routed to its owning
// shard, and answers with one summary reply: a processed count followed
// by one outcome line per path in request order.
func (c *conn) handleRemovef(args []string) error {
	if len(args) == 0 {
		return protocol.WriteCommand(c.conn, replyBadCommand)
	}
	paths := args
	if len(paths) > 2 {
		paths = paths[:2]
	}

	removed := 0
	var outcomes strings.Builder
	for _, markerPath := range paths {
		outcome, ok := c.removeOne(markerPath)
		if ok {
			removed++
		}
		outcomes.WriteString(outcome)
		outcomes.WriteByte('\n')
	}

	reply := fmt.Sprintf("Processed %d of %d files\n%s", removed, len(paths), outcomes.String())
	return protocol.WriteCommand(c.conn, reply)
}

// removeOne deletes a single path on whichever shard owns its extension
// and reports the outcome line for the summary.
func (c *conn) removeOne(markerPath string) (string, bool) {
	owner, err := c.server.table.Route(markerPath)
	if err != nil {
		return "Unsupported file type: " + markerPath, false
	}

	if owner.Local() {
		return c.removeLocal(markerPath)
	}

	rewritten, err := shard.RewriteMarker(markerPath, c.server.table.Local(), owner)
	if err != nil {
		logger.Debug("gateway: removef %s: %v", markerPath, err)
		return "Delete failed: " + markerPath, false
	}

	token, err := remoteDelete(owner, rewritten)
	if err != nil {
		logger.Warn("gateway: removef %s: %v", markerPath, err)
		return "Node unreachable: " + markerPath, false
	}
	switch token {
	case protocol.ReplySuccess:
		return "Deleted: " + markerPath, true
	case protocol.ReplyNotFound:
		return "Not found: " + markerPath, false
	default:
		return "Delete failed: " + markerPath, false
	}
}

func (c *conn) removeLocal(markerPath string) (string, bool) {
	path, err := shard.Resolve(c.server.store.Root(), c.server.table.Local(), markerPath)
	if err != nil {
		logger.Debug("gateway: removef %s: %v", markerPath, err)
		return "Delete failed: " + markerPath, false
	}

	switch err := c.server.store.Remove(path); {
	case err == nil:
		logger.Debug("gateway: deleted %s", markerPath)
		return "Deleted: " + markerPath, true
	case errors.Is(err, store.ErrNotExist):
		return "Not found: " + markerPath, false
	default:
		logger.Warn("gateway: removef %s: %v", markerPath, err)
		return "Delete failed: " + markerPath, false
	}
}
