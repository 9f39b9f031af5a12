package dashboard

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/oshokin/pool-guard/internal/auth"
	"github.com/oshokin/pool-guard/internal/domain/device"
	"github.com/oshokin/pool-guard/internal/logger"
)

const (
	// realm is announced in the basic auth challenge.
	realm = "pool-guard"
	// readHeaderTimeout bounds slow clients.
	readHeaderTimeout = 10 * time.Second
	// shutdownTimeout bounds graceful shutdown.
	shutdownTimeout = 5 * time.Second
)

//go:embed index.html
var indexHTML []byte

// Lister provides the current device snapshots.
type Lister interface {
	Snapshots() []device.Snapshot
}

// Server is the dashboard HTTP server.
type Server struct {
	lister  Lister
	hub     *Hub
	checker auth.CredentialChecker
	// ctx carries the logger for handlers.
	ctx context.Context //nolint:containedctx // Base context for request logging.

	upgrader websocket.Upgrader
}

// NewServer creates a dashboard over lister. hub must also be subscribed to
// the monitor bus to receive live events.
func NewServer(ctx context.Context, lister Lister, hub *Hub, checker auth.CredentialChecker) *Server {
	return &Server{
		lister:  lister,
		hub:     hub,
		checker: checker,
		ctx:     logger.WithName(ctx, "dashboard"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Handler returns the dashboard router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.basicAuthMiddleware)

	r.Get("/", s.handleIndex)
	r.Get("/api/devices", s.handleListDevices)
	r.Get("/ws", s.handleWebSocket)

	return r
}

// Serve runs the HTTP server on lis until ctx is canceled.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return s.ctx },
	}

	logger.InfoKV(s.ctx, "Dashboard listening", "listen_address", lis.Addr().String())

	done := make(chan struct{})

	go func() {
		defer close(done)

		<-ctx.Done()

		s.hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WarnKV(s.ctx, "Dashboard shutdown incomplete", "error", err)
		}
	}()

	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve dashboard: %w", err)
	}

	<-done
	logger.Info(s.ctx, "Dashboard stopped")

	return nil
}

// ListenAndServe binds address and serves until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, address string) error {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}

	return s.Serve(ctx, lis)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	snapshots := s.lister.Snapshots()

	views := make([]device.View, 0, len(snapshots))
	for _, snapshot := range snapshots {
		views = append(views, snapshot.View())
	}

	writeJSON(w, http.StatusOK, map[string]any{"devices": views})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithKV(r.Context(), "remote_addr", r.RemoteAddr)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnKV(ctx, "WebSocket upgrade failed", "error", err)

		return
	}

	c := &client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	if !s.hub.register(c) {
		_ = conn.Close()

		return
	}

	// Current state first so the page can draw before the next change.
	for _, snapshot := range s.lister.Snapshots() {
		data, err := encodeMessage(EventDeviceChanged, snapshot.View())
		if err == nil {
			c.trySend(data)
		}
	}

	logger.DebugKV(ctx, "Dashboard client connected", "clients", s.hub.ClientCount())

	// The request context ends when the handler returns; pumps use the server context.
	go c.writePump()
	go c.readPump(logger.WithKV(s.ctx, "remote_addr", r.RemoteAddr))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	//nolint:errcheck // Best-effort write; the client may be gone.
	json.NewEncoder(w).Encode(v)
}
