package gateway

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rvaleri/shardfs/internal/logger"
	"github.com/rvaleri/shardfs/internal/protocol"
	"github.com/rvaleri/shardfs/internal/shard"
)

// handleDispfnames aggregates one directory listing across every shard.
// The directory must exist under the gateway's root; local existence is
// authoritative even when the remote shards would have entries. Shards
// are queried sequentially in fixed order, each list sorted, and the
// whole aggregate is sent as a single text reply.
func (c *conn) handleDispfnames(args []string) error {
	if len(args) != 1 {
		return protocol.WriteCommand(c.conn, replyBadCommand)
	}
	markerDir := args[0]

	localDir, err := shard.Resolve(c.server.store.Root(), c.server.table.Local(), markerDir)
	if err != nil || !c.server.store.DirExists(localDir) {
		logger.Debug("gateway: dispfnames %s: directory not found", markerDir)
		return protocol.WriteCommand(c.conn, replyDirNotFound)
	}

	type shardListing struct {
		ext   string
		names []string
	}

	var listings []shardListing

	localNames, err := c.server.store.List(localDir)
	if err != nil {
		logger.Warn("gateway: dispfnames %s: %v", markerDir, err)
	}
	listings = append(listings, shardListing{ext: c.server.table.Local().Ext, names: localNames})

	for _, sh := range c.server.table.Remotes() {
		var names []string
		if rewritten, err := shard.RewriteMarker(markerDir, c.server.table.Local(), sh); err == nil {
			names = remoteList(sh, rewritten)
			sort.Strings(names)
		}
		listings = append(listings, shardListing{ext: sh.Ext, names: names})
	}

	total := 0
	for _, l := range listings {
		total += len(l.names)
	}
	if total == 0 {
		return protocol.WriteCommand(c.conn, replyNoFiles)
	}

	var reply strings.Builder
	fmt.Fprintf(&reply, "Files found: %d (", total)
	for i, l := range listings {
		if i > 0 {
			reply.WriteString(", ")
		}
		fmt.Fprintf(&reply, "%s: %d", l.ext, len(l.names))
	}
	reply.WriteString(")\n")
	for _, l := range listings {
		for _, name := range l.names {
			reply.WriteString(name)
			reply.WriteByte('\n')
		}
	}
	return protocol.WriteCommand(c.conn, reply.String())
}
