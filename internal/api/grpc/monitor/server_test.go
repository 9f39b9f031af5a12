package monitor

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/pool-guard/internal/domain/alarm"
	"github.com/oshokin/pool-guard/internal/domain/device"
	core "github.com/oshokin/pool-guard/internal/monitor"
)

// fakeService keeps devices in a map and records the last signal-loss actor.
type fakeService struct {
	devices   []device.Snapshot
	lastActor *alarm.Actor
}

func (f *fakeService) Snapshots() []device.Snapshot {
	return f.devices
}

func (f *fakeService) Snapshot(id string) (device.Snapshot, error) {
	for _, d := range f.devices {
		if d.ID == id {
			return d, nil
		}
	}

	return device.Snapshot{}, fmt.Errorf("%w: %s", core.ErrDeviceNotFound, id)
}

func (f *fakeService) ForceSignalLoss(_ context.Context, id string, actor *alarm.Actor) (device.Snapshot, error) {
	for i, d := range f.devices {
		if d.ID == id {
			f.devices[i].Status = device.StatusDrowning
			f.lastActor = actor

			return f.devices[i], nil
		}
	}

	return device.Snapshot{}, fmt.Errorf("%w: %s", core.ErrDeviceNotFound, id)
}

func newFakeService() *fakeService {
	return &fakeService{
		devices: []device.Snapshot{
			{
				ID:         "Device0",
				Battery:    45,
				Position:   device.Position{X: 100, Y: 50},
				Status:     device.StatusNormal,
				LastSignal: time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC),
			},
			{
				ID:       "Device1",
				Slot:     1,
				Battery:  5,
				Position: device.Position{X: 10, Y: 10},
				Status:   device.StatusLowBattery,
			},
		},
	}
}

// dialBufconn serves svc over an in-memory listener and returns a client.
func dialBufconn(t *testing.T, svc Service) MonitorServiceClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(t.Context())))
	RegisterMonitorServiceServer(srv, NewServer(svc))

	go func() {
		_ = srv.Serve(lis)
	}()

	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	t.Cleanup(func() { _ = conn.Close() })

	return NewMonitorServiceClient(conn)
}

func TestServer_Validation(t *testing.T) {
	t.Parallel()

	s := NewServer(newFakeService())

	_, err := s.GetDevice(t.Context(), nil)
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.ForceSignalLoss(t.Context(), wrapperspb.String("  "))
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.GetDevice(t.Context(), wrapperspb.String("Ghost"))
	require.Equal(t, codes.NotFound, status.Code(err))
}

func TestServer_Roundtrip(t *testing.T) {
	t.Parallel()

	svc := newFakeService()
	client := dialBufconn(t, svc)

	list, err := client.ListDevices(t.Context(), &emptypb.Empty{})
	require.NoError(t, err)

	devices, err := ListFromStruct(list)
	require.NoError(t, err)
	require.Equal(t, svc.devices, devices)

	got, err := client.GetDevice(t.Context(), wrapperspb.String("Device1"))
	require.NoError(t, err)

	one, err := FromStruct(got)
	require.NoError(t, err)
	require.Equal(t, device.StatusLowBattery, one.Status)

	ctx := metadata.AppendToOutgoingContext(t.Context(), ActorMetadataKey, "lifeguard@tower")

	forced, err := client.ForceSignalLoss(ctx, wrapperspb.String("Device0"))
	require.NoError(t, err)

	one, err = FromStruct(forced)
	require.NoError(t, err)
	require.Equal(t, device.StatusDrowning, one.Status)
	require.Equal(t, &alarm.Actor{Username: "lifeguard", Hostname: "tower"}, svc.lastActor)

	_, err = client.ForceSignalLoss(t.Context(), wrapperspb.String("Ghost"))
	require.Equal(t, codes.NotFound, status.Code(err))
}

func TestFromStruct_Malformed(t *testing.T) {
	t.Parallel()

	st, err := ToStruct(device.Snapshot{ID: "Device0", Status: device.StatusWarning})
	require.NoError(t, err)

	s, err := FromStruct(st)
	require.NoError(t, err)
	require.True(t, s.LastSignal.IsZero())

	delete(st.Fields, "id")

	_, err = FromStruct(st)
	require.ErrorIs(t, err, ErrMalformedSnapshot)

	st, err = ToStruct(device.Snapshot{ID: "Device0"})
	require.NoError(t, err)

	st.Fields["status"] = nil

	_, err = FromStruct(st)
	require.ErrorIs(t, err, ErrMalformedSnapshot)
}
