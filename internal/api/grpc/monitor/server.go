package monitor

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/pool-guard/internal/domain/alarm"
	"github.com/oshokin/pool-guard/internal/domain/device"
	"github.com/oshokin/pool-guard/internal/logger"
	core "github.com/oshokin/pool-guard/internal/monitor"
)

// ActorMetadataKey carries the calling "user@host" in request metadata.
const ActorMetadataKey = "x-actor"

// Service abstracts the registry operations the transport layer depends on.
type Service interface {
	Snapshots() []device.Snapshot
	Snapshot(id string) (device.Snapshot, error)
	ForceSignalLoss(ctx context.Context, id string, actor *alarm.Actor) (device.Snapshot, error)
}

// Server implements MonitorServiceServer.
type Server struct {
	// service provides the device registry.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// ListDevices returns every device in slot order.
func (s *Server) ListDevices(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	result, err := ListToStruct(s.service.Snapshots())
	if err != nil {
		logger.ErrorKV(ctx, "Failed to encode device list", "error", err)

		return nil, status.Error(codes.Internal, "unable to encode devices")
	}

	return result, nil
}

// GetDevice returns one device.
func (s *Server) GetDevice(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := deviceID(req)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.service.Snapshot(id)
	if err != nil {
		return nil, toStatus(err)
	}

	return encode(ctx, snapshot)
}

// ForceSignalLoss makes the device look silent past the drowning timeout.
func (s *Server) ForceSignalLoss(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := deviceID(req)
	if err != nil {
		return nil, err
	}

	actor := ActorFromContext(ctx)

	logger.InfoKV(ctx, "Signal loss requested", "device_id", id, "actor", actor.String())

	snapshot, err := s.service.ForceSignalLoss(ctx, id, actor)
	if err != nil {
		return nil, toStatus(err)
	}

	return encode(ctx, snapshot)
}

// ActorFromContext reads the x-actor metadata of an incoming call.
func ActorFromContext(ctx context.Context) *alarm.Actor {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil
	}

	values := md.Get(ActorMetadataKey)
	if len(values) == 0 {
		return nil
	}

	return alarm.ParseActor(values[0])
}

func deviceID(req *wrapperspb.StringValue) (string, error) {
	id := strings.TrimSpace(req.GetValue())
	if id == "" {
		return "", status.Error(codes.InvalidArgument, "device id is required")
	}

	return id, nil
}

func encode(ctx context.Context, snapshot device.Snapshot) (*structpb.Struct, error) {
	result, err := ToStruct(snapshot)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to encode device", "device_id", snapshot.ID, "error", err)

		return nil, status.Error(codes.Internal, "unable to encode device")
	}

	return result, nil
}

// toStatus maps registry errors to gRPC status codes.
func toStatus(err error) error {
	if errors.Is(err, core.ErrDeviceNotFound) {
		return status.Error(codes.NotFound, err.Error())
	}

	return status.Error(codes.Internal, "unable to evaluate device")
}
