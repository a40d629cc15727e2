package node

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"

	"github.com/rvaleri/shardfs/internal/logger"
	"github.com/rvaleri/shardfs/internal/protocol"
	"github.com/rvaleri/shardfs/internal/shard"
	"github.com/rvaleri/shardfs/internal/store"
)

// handleConn serves one request then closes. The first read is
// speculative: a known verb prefix makes it a text command, a plausible
// length prefix makes it an upload envelope whose header may continue
// past this buffer.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	raw, err := readFirst(conn)
	if err != nil {
		logger.Debug("node %s: read request: %v", s.shard.Name, err)
		return
	}

	if protocol.IsEnvelopePrefix(raw) {
		s.handleUpload(conn, raw)
		return
	}

	cmd := protocol.ParseCommand(string(raw))
	if err := s.dispatch(conn, cmd); err != nil {
		logger.Debug("node %s: %s: %v", s.shard.Name, cmd.Verb, err)
	}
}

func readFirst(conn net.Conn) ([]byte, error) {
	buf := make([]byte, protocol.MaxCommandLen)
	n, err := conn.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err == nil {
		err = fmt.Errorf("empty request")
	}
	return nil, err
}

func (s *Server) dispatch(conn net.Conn, cmd protocol.Command) error {
	switch cmd.Verb {
	case protocol.VerbGetFile:
		if len(cmd.Args) != 1 {
			return s.failFrame(conn, fmt.Errorf("%s wants 1 argument, got %d", cmd.Verb, len(cmd.Args)))
		}
		return s.handleGetFile(conn, cmd.Args[0])
	case protocol.VerbCreateTar:
		if len(cmd.Args) != 1 {
			return s.failFrame(conn, fmt.Errorf("%s wants 1 argument, got %d", cmd.Verb, len(cmd.Args)))
		}
		return s.handleCreateTar(conn, cmd.Args[0])
	case protocol.VerbDelete:
		if len(cmd.Args) != 1 {
			return protocol.WriteCommand(conn, protocol.ReplyFailed)
		}
		return s.handleDelete(conn, cmd.Args[0])
	case protocol.VerbList:
		if len(cmd.Args) != 1 {
			return protocol.WriteCommand(conn, protocol.ReplyErrNotFound)
		}
		return s.handleList(conn, cmd.Args[0])
	default:
		// Neither a verb nor an envelope: there is no recovery handshake
		// on node connections, so drop it.
		return fmt.Errorf("unrecognized request %q", cmd.Verb)
	}
}

// failFrame reports a failed binary operation as a -1 frame, keeping the
// reply well formed.
func (s *Server) failFrame(conn net.Conn, cause error) error {
	if err := protocol.WriteNotFound(conn); err != nil {
		return err
	}
	return cause
}

func (s *Server) handleGetFile(conn net.Conn, markerPath string) error {
	path, err := shard.Resolve(s.store.Root(), s.shard, markerPath)
	if err != nil {
		return s.failFrame(conn, err)
	}

	f, size, err := s.store.Open(path)
	if err != nil {
		if errors.Is(err, store.ErrNotExist) {
			logger.Debug("node %s: %s absent", s.shard.Name, markerPath)
			return protocol.WriteNotFound(conn)
		}
		return s.failFrame(conn, err)
	}
	defer f.Close()

	logger.Debug("node %s: sending %s (%d bytes)", s.shard.Name, markerPath, size)
	return protocol.WriteFrame(conn, f, size)
}

func (s *Server) handleCreateTar(conn net.Conn, ext string) error {
	if ext != s.store.Ext() {
		return s.failFrame(conn, fmt.Errorf("this shard owns %s, not %s", s.store.Ext(), ext))
	}

	bundle, err := s.store.BuildBundle()
	if err != nil {
		return s.failFrame(conn, err)
	}
	// The bundle is transient: gone after this stream, streamed fully or
	// not.
	defer bundle.Remove()

	f, size, err := s.store.Open(bundle.Path)
	if err != nil {
		return s.failFrame(conn, err)
	}
	defer f.Close()

	logger.Debug("node %s: sending %s bundle (%d bytes)", s.shard.Name, ext, size)
	return protocol.WriteFrame(conn, f, size)
}

func (s *Server) handleDelete(conn net.Conn, markerPath string) error {
	path, err := shard.Resolve(s.store.Root(), s.shard, markerPath)
	if err != nil {
		return protocol.WriteCommand(conn, protocol.ReplyFailed)
	}

	switch err := s.store.Remove(path); {
	case err == nil:
		logger.Debug("node %s: deleted %s", s.shard.Name, markerPath)
		return protocol.WriteCommand(conn, protocol.ReplySuccess)
	case errors.Is(err, store.ErrNotExist):
		return protocol.WriteCommand(conn, protocol.ReplyNotFound)
	default:
		logger.Warn("node %s: delete %s: %v", s.shard.Name, markerPath, err)
		return protocol.WriteCommand(conn, protocol.ReplyFailed)
	}
}

func (s *Server) handleList(conn net.Conn, markerDir string) error {
	dir, err := shard.Resolve(s.store.Root(), s.shard, markerDir)
	if err != nil {
		return protocol.WriteCommand(conn, protocol.ReplyErrNotFound)
	}

	names, err := s.store.List(dir)
	if err != nil {
		if !errors.Is(err, store.ErrNotExist) {
			logger.Warn("node %s: list %s: %v", s.shard.Name, markerDir, err)
		}
		return protocol.WriteCommand(conn, protocol.ReplyErrNotFound)
	}

	var reply strings.Builder
	fmt.Fprintf(&reply, "%s %d\n", protocol.ReplyCount, len(names))
	for _, name := range names {
		reply.WriteString(name)
		reply.WriteByte('\n')
	}
	return protocol.WriteCommand(conn, reply.String())
}

func (s *Server) handleUpload(conn net.Conn, buffered []byte) {
	er := protocol.NewEnvelopeReader(conn, buffered)
	env, err := er.ReadHeader()
	if err != nil {
		logger.Warn("node %s: upload envelope: %v", s.shard.Name, err)
		return
	}

	if strings.ContainsAny(env.Filename, "/\\") || env.Filename == "." || env.Filename == ".." {
		logger.Warn("node %s: upload filename %q rejected", s.shard.Name, env.Filename)
		return
	}

	dir, err := shard.Resolve(s.store.Root(), s.shard, env.DestPath)
	if err != nil {
		logger.Warn("node %s: upload destination %q: %v", s.shard.Name, env.DestPath, err)
		return
	}

	target := filepath.Join(dir, env.Filename)
	if err := s.store.Save(target, er.Body(env.Size), env.Size); err != nil {
		logger.Warn("node %s: store %s/%s: %v", s.shard.Name, env.DestPath, env.Filename, err)
		return
	}
	logger.Debug("node %s: stored %s/%s (%d bytes)", s.shard.Name, env.DestPath, env.Filename, env.Size)
}
