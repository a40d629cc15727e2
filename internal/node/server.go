// Package node implements the generic shard node service: one storage
// root, one recognized extension, five request kinds. Every path it
// receives already carries its own marker, rewritten by the gateway, so
// the node has no gateway-specific logic.
package node

import (
	"context"
	"fmt"
	"net"

	"github.com/rvaleri/shardfs/internal/logger"
	"github.com/rvaleri/shardfs/internal/shard"
	"github.com/rvaleri/shardfs/internal/store"
)

// Server is one shard node.
type Server struct {
	listen string
	shard  shard.Shard
	store  *store.Store
}

// New returns a node server for the given shard identity and store.
func New(listen string, sh shard.Shard, st *store.Store) *Server {
	return &Server{listen: listen, shard: sh, store: st}
}

// Serve listens on the configured address and accepts until ctx is
// cancelled.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("failed to start listener: %w", err)
	}
	return s.ServeListener(ctx, listener)
}

// ServeListener accepts connections from an existing listener. Each
// connection carries exactly one request and is handled on its own
// goroutine; workers share nothing but the storage root.
func (s *Server) ServeListener(ctx context.Context, listener net.Listener) error {
	logger.Info("node %s serving %s files from %s on %s",
		s.shard.Name, s.store.Ext(), s.store.Root(), listener.Addr())

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				logger.Debug("node %s: accept: %v", s.shard.Name, err)
				continue
			}
		}

		go s.handleConn(conn)
	}
}
