package debug

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/dshills/luadap/internal/debug/dap"
	"github.com/dshills/luadap/internal/terminal"
)

// Server runs debug sessions over stdio or accepted socket connections.
type Server struct {
	opts   Options
	logger *zap.Logger
}

// NewServer creates a server whose sessions share opts. When opts has no
// terminal registry each session gets its own, so concurrent clients never
// dispose each other's terminals.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Server{opts: opts, logger: opts.Logger.Named("server")}
}

// ServeStdio serves a single session over the process standard streams.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.ServeConn(ctx, dap.NewStdioConn())
}

// ServeConn serves a single session over conn.
func (s *Server) ServeConn(ctx context.Context, conn dap.Transport) error {
	opts := s.opts
	if opts.Registry == nil {
		registry := terminal.NewRegistry()
		defer registry.DisposeAll()
		opts.Registry = registry
	}
	return NewSession(conn, opts).Serve(ctx)
}

// ListenAndServe listens on addr and serves every connection.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln until ctx is done, running one session
// per connection. It closes ln and waits for open sessions before
// returning.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("listening", zap.String("addr", ln.Addr().String()))

	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()

	var wg sync.WaitGroup
	defer func() {
		_ = ln.Close()
		wg.Wait()
	}()

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		remote := nc.RemoteAddr().String()
		s.logger.Debug("client connected", zap.String("remote", remote))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.ServeConn(ctx, dap.NewSocketConn(nc)); err != nil {
				s.logger.Error("session failed", zap.String("remote", remote), zap.Error(err))
			}
			s.logger.Debug("client disconnected", zap.String("remote", remote))
		}()
	}
}
