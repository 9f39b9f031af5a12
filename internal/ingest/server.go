package ingest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/oshokin/pool-guard/internal/logger"
)

// Server accepts telemetry connections and runs one Handler goroutine per client.
type Server struct {
	// listener is bound by Listen and closed on shutdown.
	listener net.Listener
	// handler services every accepted connection.
	handler *Handler

	// mu protects conns.
	mu    sync.Mutex
	conns map[net.Conn]struct{}
	// wg tracks running handlers.
	wg sync.WaitGroup
}

// Listen binds address. A bind failure is returned to the caller.
func Listen(ctx context.Context, address string, handler *Handler) (*Server, error) {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", address, err)
	}

	return NewServer(lis, handler), nil
}

// NewServer wraps an already bound listener.
func NewServer(lis net.Listener, handler *Handler) *Server {
	return &Server{
		listener: lis,
		handler:  handler,
		conns:    make(map[net.Conn]struct{}),
	}
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until ctx is canceled. On cancellation it closes
// the listener and every client connection, then waits for the handlers.
func (s *Server) Serve(ctx context.Context) error {
	ctx = logger.WithName(ctx, "ingest")

	logger.InfoKV(ctx, "Telemetry listener started", "listen_address", s.listener.Addr().String())

	stop := context.AfterFunc(ctx, s.shutdown)
	defer stop()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				break
			}

			// Transient accept errors do not stop the server.
			logger.WarnKV(ctx, "Accept failed", "error", err)

			continue
		}

		if !s.track(conn) {
			_ = conn.Close()

			break
		}

		s.wg.Go(func() {
			defer s.untrack(conn)

			s.handler.Serve(ctx, conn)
		})
	}

	s.shutdown()
	s.wg.Wait()

	logger.Info(ctx, "Telemetry listener stopped")

	return nil
}

// Close stops accepting and closes live connections without waiting for handlers.
func (s *Server) Close() error {
	s.shutdown()

	return nil
}

// track registers conn; it returns false once shutdown has started.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conns == nil {
		return false
	}

	s.conns[conn] = struct{}{}

	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conns, conn)
}

// shutdown closes the listener and all live connections. It is idempotent.
func (s *Server) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conns == nil {
		return
	}

	_ = s.listener.Close()

	for conn := range s.conns {
		_ = conn.Close()
	}

	s.conns = nil
}
