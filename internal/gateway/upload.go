package gateway

import (
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/rvaleri/shardfs/internal/logger"
	"github.com/rvaleri/shardfs/internal/protocol"
	"github.com/rvaleri/shardfs/internal/shard"
)

// handleUploadf receives 1-3 files, each as an int64 size followed by
// the body. Every file lands under the gateway's own root first; files
// owned by a remote shard are then forwarded as upload envelopes and the
// local copy is deleted only after the forward completed in full. A
// failed forward keeps the gateway copy as the fallback. One summary is
// sent after all files are handled.
func (c *conn) handleUploadf(args []string) error {
	if len(args) < 2 || len(args) > 4 {
		return protocol.WriteCommand(c.conn, replyBadCommand)
	}

	destMarker := args[len(args)-1]
	files := args[:len(args)-1]

	destDir, err := shard.Resolve(c.server.store.Root(), c.server.table.Local(), destMarker)
	if err != nil {
		logger.Debug("gateway: uploadf destination %q: %v", destMarker, err)
		return protocol.WriteCommand(c.conn, replyBadCommand)
	}

	processed := 0
	for _, fileArg := range files {
		name := path.Base(strings.ReplaceAll(fileArg, "\\", "/"))

		ok, err := c.receiveOne(destDir, destMarker, name)
		if err != nil {
			return err
		}
		if ok {
			processed++
		}
	}

	return protocol.WriteCommand(c.conn, fmt.Sprintf("Processed %d of %d files", processed, len(files)))
}

// receiveOne reads one size+body exchange off the client socket and
// stores then routes the file. The returned error reports client-socket
// faults; every other failure just marks the file as not processed.
func (c *conn) receiveOne(destDir, destMarker, name string) (bool, error) {
	size, err := protocol.ReadSize(c.conn)
	if err != nil {
		return false, fmt.Errorf("read upload size for %s: %w", name, err)
	}
	if size < 0 {
		return false, fmt.Errorf("upload size %d for %s: %w", size, name, protocol.ErrBadLength)
	}

	target := filepath.Join(destDir, name)
	body := protocol.NewFrameBody(c.conn, size)

	if err := c.server.store.Save(target, body, size); err != nil {
		if errors.Is(err, protocol.ErrShortTransfer) {
			// The client stream died mid-body; the partial file is gone
			// and the connection is unusable.
			return false, err
		}
		// Local failure (disk, permissions): drain the rest of the body
		// to keep the stream in sync for the next file.
		io.Copy(io.Discard, body)
		logger.Warn("gateway: uploadf %s: %v", name, err)
		return false, nil
	}

	c.routeUpload(destMarker, name, target, size)
	return true, nil
}

// routeUpload forwards a stored file to its owning shard when that shard
// is remote. Local and unrecognized extensions stay on the gateway.
func (c *conn) routeUpload(destMarker, name, target string, size int64) {
	owner, err := c.server.table.Route(name)
	if err != nil || owner.Local() {
		logger.Debug("gateway: %s stored locally", name)
		return
	}

	nodeDest, err := shard.RewriteMarker(destMarker, c.server.table.Local(), owner)
	if err != nil {
		logger.Warn("gateway: uploadf %s: %v", name, err)
		return
	}

	f, fsize, err := c.server.store.Open(target)
	if err != nil {
		logger.Warn("gateway: uploadf reopen %s: %v", name, err)
		return
	}
	err = remoteUpload(owner, nodeDest, name, f, fsize)
	f.Close()

	if err != nil {
		logger.Warn("gateway: forward %s to %s failed, keeping local copy: %v", name, owner.Name, err)
		return
	}

	if err := c.server.store.Remove(target); err != nil {
		logger.Warn("gateway: remove forwarded %s: %v", name, err)
		return
	}
	logger.Debug("gateway: %s forwarded to %s (%d bytes)", name, owner.Name, size)
}
