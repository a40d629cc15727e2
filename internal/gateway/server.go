// Package gateway implements the client-facing node: it owns the default
// shard, parses client commands, routes by file extension, and proxies
// binary transfers to the remote shard nodes. It is a protocol server to
// clients and a protocol client to the nodes, speaking the same codec on
// both sides.
package gateway

import (
	"context"
	"fmt"
	"net"

	"github.com/rvaleri/shardfs/internal/logger"
	"github.com/rvaleri/shardfs/internal/shard"
	"github.com/rvaleri/shardfs/internal/store"
)

// Server is the gateway node.
type Server struct {
	listen string
	table  *shard.Table
	store  *store.Store
}

// New returns a gateway serving the local shard from st and routing the
// rest through table.
func New(listen string, table *shard.Table, st *store.Store) *Server {
	return &Server{listen: listen, table: table, store: st}
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

// ServeListener accepts client connections from an existing listener.
// One goroutine per connection; connections share no state beyond the
// shard roots.
func (s *Server) ServeListener(ctx context.Context, listener net.Listener) error {
	logger.Info("gateway %s serving on %s, storage root %s",
		s.table.Local().Name, listener.Addr(), s.store.Root())

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		tcpConn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				logger.Debug("gateway: accept: %v", err)
				continue
			}
		}

		c := &conn{server: s, conn: tcpConn}
		go c.serve()
	}
}
