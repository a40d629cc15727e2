package gateway

import (
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/rvaleri/shardfs/internal/logger"
	"github.com/rvaleri/shardfs/internal/protocol"
	"github.com/rvaleri/shardfs/internal/shard"
)

// Every remote operation uses a fresh connection for exactly one
// request/response and closes it afterwards. These are loop-back hops;
// the protocol has no pooling or reuse.

func dialShard(sh shard.Shard) (net.Conn, error) {
	nodeConn, err := net.Dial("tcp", sh.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial node %s at %s: %w", sh.Name, sh.Addr, err)
	}
	return nodeConn, nil
}

// relayFrame issues a binary-reply command (GET_FILE, CREATE_TAR) to sh
// and relays the resulting transfer frame to the client byte for byte,
// through a fixed-size buffer, never holding the whole payload. Any
// node-side failure degrades to a -1 frame; the returned error reports
// client-socket faults only.
func (c *conn) relayFrame(sh shard.Shard, command string) error {
	nodeConn, err := dialShard(sh)
	if err != nil {
		logger.Warn("gateway: %v", err)
		return protocol.WriteNotFound(c.conn)
	}
	defer nodeConn.Close()

	if err := protocol.WriteCommand(nodeConn, command); err != nil {
		logger.Warn("gateway: node %s: %v", sh.Name, err)
		return protocol.WriteNotFound(c.conn)
	}

	size, err := protocol.ReadSize(nodeConn)
	if err != nil {
		logger.Warn("gateway: node %s: %v", sh.Name, err)
		return protocol.WriteNotFound(c.conn)
	}

	if err := protocol.WriteSize(c.conn, size); err != nil {
		return err
	}
	if size == protocol.SizeNotFound {
		return nil
	}

	// The size prefix is already on the client socket; a relay fault
	// here corrupts the frame and only dropping the connection remains.
	if err := protocol.Relay(c.conn, nodeConn, size); err != nil {
		return fmt.Errorf("relay from node %s: %w", sh.Name, err)
	}
	return nil
}

// remoteDelete runs one DELETE round trip and returns the node's reply
// token.
func remoteDelete(sh shard.Shard, markerPath string) (string, error) {
	nodeConn, err := dialShard(sh)
	if err != nil {
		return "", err
	}
	defer nodeConn.Close()

	if err := protocol.WriteCommand(nodeConn, protocol.VerbDelete+" "+markerPath); err != nil {
		return "", err
	}
	reply, err := protocol.ReadCommand(nodeConn)
	if err != nil {
		return "", fmt.Errorf("node %s delete reply: %w", sh.Name, err)
	}
	return strings.TrimSpace(reply), nil
}

// remoteList runs one LIST round trip. An unreachable node or a missing
// remote directory both yield zero entries, never a failure: listings
// degrade per shard.
func remoteList(sh shard.Shard, markerDir string) []string {
	nodeConn, err := dialShard(sh)
	if err != nil {
		logger.Warn("gateway: %v", err)
		return nil
	}
	defer nodeConn.Close()

	if err := protocol.WriteCommand(nodeConn, protocol.VerbList+" "+markerDir); err != nil {
		logger.Warn("gateway: node %s: %v", sh.Name, err)
		return nil
	}
	reply, err := protocol.ReadCommand(nodeConn)
	if err != nil {
		logger.Warn("gateway: node %s list reply: %v", sh.Name, err)
		return nil
	}

	lines := strings.Split(strings.TrimRight(reply, "\n"), "\n")
	if len(lines) == 0 || !strings.HasPrefix(lines[0], protocol.ReplyCount+" ") {
		return nil
	}
	var names []string
	for _, line := range lines[1:] {
		if line != "" {
			names = append(names, line)
		}
	}
	return names
}

// remoteUpload forwards size bytes from src to sh as an upload envelope.
// Success means the full byte count went out; the node keeps no partial
// file otherwise.
func remoteUpload(sh shard.Shard, destMarker, filename string, src io.Reader, size int64) error {
	nodeConn, err := dialShard(sh)
	if err != nil {
		return err
	}
	defer nodeConn.Close()

	env := protocol.UploadEnvelope{DestPath: destMarker, Filename: filename, Size: size}
	if err := protocol.WriteEnvelope(nodeConn, env); err != nil {
		return fmt.Errorf("node %s envelope: %w", sh.Name, err)
	}
	if err := protocol.Relay(nodeConn, src, size); err != nil {
		return fmt.Errorf("forward %s to node %s: %w", filename, sh.Name, err)
	}
	return nil
}
