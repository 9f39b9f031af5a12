package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/oshokin/pool-guard/internal/api/dashboard"
	api "github.com/oshokin/pool-guard/internal/api/grpc/monitor"
	"github.com/oshokin/pool-guard/internal/auth"
	"github.com/oshokin/pool-guard/internal/config"
	"github.com/oshokin/pool-guard/internal/ingest"
	"github.com/oshokin/pool-guard/internal/logger"
	"github.com/oshokin/pool-guard/internal/monitor"
	"github.com/oshokin/pool-guard/internal/mqtt"
	"github.com/oshokin/pool-guard/internal/notify"
)

// Server is a fully wired pool-server: every listener is bound by New.
type Server struct {
	registry *monitor.Registry
	bus      *monitor.Bus

	ingest *ingest.Server

	grpcServer *grpc.Server
	controlLis net.Listener

	dashboard    *dashboard.Server
	dashboardLis net.Listener

	// mqtt is nil when the broker connection is disabled.
	mqtt *mqtt.Client
}

// New builds the registry, the alarm pipeline and binds every listener.
// out receives the beep sink output. A bind failure is returned and
// everything opened so far is released.
//
//nolint:funlen // Linear wiring of the server's components.
func New(ctx context.Context, cfg *config.Config, out io.Writer) (_ *Server, err error) {
	s := new(Server)

	defer func() {
		if err != nil {
			s.release()
		}
	}()

	var broker notify.Broker

	if cfg.MQTT.Enabled {
		s.mqtt, err = mqtt.Connect(ctx, cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("connect mqtt: %w", err)
		}

		broker = s.mqtt
	}

	sinks, err := notify.BuildSinks(cfg.Alarm.Sinks, out, broker)
	if err != nil {
		return nil, fmt.Errorf("build alarm sinks: %w", err)
	}

	s.bus = monitor.NewBus(cfg.BusBuffer, sinks...)

	if broker != nil {
		s.bus.Subscribe(notify.NewStatePublisher(broker))
	}

	s.registry, err = monitor.NewRegistry(deviceSpecs(cfg), registryOptions(cfg, s.bus))
	if err != nil {
		return nil, fmt.Errorf("create registry: %w", err)
	}

	s.ingest, err = ingest.Listen(ctx, cfg.ListenAddress, ingest.NewHandler(s.registry))
	if err != nil {
		return nil, fmt.Errorf("start ingestion: %w", err)
	}

	lc := net.ListenConfig{}

	s.controlLis, err = lc.Listen(ctx, "tcp", cfg.ControlAddress)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.ControlAddress, err)
	}

	s.grpcServer = grpc.NewServer(grpc.UnaryInterceptor(api.LoggingInterceptor(logger.WithName(ctx, "control"))))
	api.RegisterMonitorServiceServer(s.grpcServer, api.NewServer(s.registry))

	if cfg.DashboardAddress != "" {
		s.dashboardLis, err = lc.Listen(ctx, "tcp", cfg.DashboardAddress)
		if err != nil {
			return nil, fmt.Errorf("listen on %s: %w", cfg.DashboardAddress, err)
		}

		hub := dashboard.NewHub()
		s.bus.Subscribe(hub)

		checker := auth.NewStaticChecker(cfg.Credentials.Username, cfg.Credentials.Password)
		s.dashboard = dashboard.NewServer(ctx, s.registry, hub, checker)
	}

	logger.InfoKV(ctx, "Pool server ready",
		"devices", s.registry.Len(),
		"listen_address", s.ingest.Addr().String(),
		"control_address", s.controlLis.Addr().String(),
		"dashboard_enabled", s.dashboard != nil,
		"mqtt_enabled", s.mqtt != nil,
		"alarm_sinks", cfg.Alarm.Sinks)

	return s, nil
}

// Registry returns the device registry.
func (s *Server) Registry() *monitor.Registry {
	return s.registry
}

// IngestAddr returns the bound telemetry address.
func (s *Server) IngestAddr() net.Addr {
	return s.ingest.Addr()
}

// ControlAddr returns the bound control API address.
func (s *Server) ControlAddr() net.Addr {
	return s.controlLis.Addr()
}

// DashboardAddr returns the bound dashboard address or nil when disabled.
func (s *Server) DashboardAddr() net.Addr {
	if s.dashboardLis == nil {
		return nil
	}

	return s.dashboardLis.Addr()
}

// Run serves until ctx is canceled or a component fails. Ingestion,
// watchdogs and transports stop first; the bus then drains queued events.
func (s *Server) Run(ctx context.Context) error {
	busCtx, stopBus := context.WithCancel(context.WithoutCancel(ctx))
	busDone := make(chan struct{})

	go func() {
		defer close(busDone)
		s.bus.Run(busCtx)
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Watchdogs also see the stop flag, so none starts another tick.
		flagged := make(chan struct{})

		context.AfterFunc(gctx, func() {
			s.registry.Stop()
			close(flagged)
		})

		s.registry.Run(gctx)
		<-flagged

		return nil
	})

	g.Go(func() error {
		return s.ingest.Serve(gctx)
	})

	g.Go(func() error {
		return s.serveControl(gctx)
	})

	if s.dashboard != nil {
		g.Go(func() error {
			return s.dashboard.Serve(gctx, s.dashboardLis)
		})
	}

	err := g.Wait()

	stopBus()
	<-busDone

	if s.mqtt != nil {
		_ = s.mqtt.Close()
	}

	logger.Info(ctx, "Pool server stopped")

	return err
}

// serveControl runs the gRPC server until ctx is canceled.
func (s *Server) serveControl(ctx context.Context) error {
	logger.InfoKV(ctx, "Control API listening", "listen_address", s.controlLis.Addr().String())

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		s.grpcServer.GracefulStop()
		close(done)
	}()

	if err := s.grpcServer.Serve(s.controlLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done

	return nil
}

// release closes whatever New managed to open before failing.
func (s *Server) release() {
	if s.ingest != nil {
		_ = s.ingest.Close()
	}

	if s.controlLis != nil {
		_ = s.controlLis.Close()
	}

	if s.dashboardLis != nil {
		_ = s.dashboardLis.Close()
	}

	if s.mqtt != nil {
		_ = s.mqtt.Close()
	}
}
