package monitor

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "poolguard.v1.MonitorService"

// Full method names.
const (
	ListDevicesMethod     = "/" + ServiceName + "/ListDevices"
	GetDeviceMethod       = "/" + ServiceName + "/GetDevice"
	ForceSignalLossMethod = "/" + ServiceName + "/ForceSignalLoss"
)

// MonitorServiceServer is the server API of the control service.
type MonitorServiceServer interface {
	// ListDevices returns {"devices": [...]} in slot order.
	ListDevices(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	// GetDevice returns one device snapshot.
	GetDevice(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	// ForceSignalLoss simulates a device going silent and returns the updated snapshot.
	ForceSignalLoss(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
}

// RegisterMonitorServiceServer registers srv on s.
func RegisterMonitorServiceServer(s grpc.ServiceRegistrar, srv MonitorServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes poolguard.v1.MonitorService for grpc.Server.
//
//nolint:gochecknoglobals // Service descriptors are package-level by convention.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MonitorServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListDevices", Handler: listDevicesHandler},
		{MethodName: "GetDevice", Handler: getDeviceHandler},
		{MethodName: "ForceSignalLoss", Handler: forceSignalLossHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "poolguard/v1/monitor.proto",
}

func listDevicesHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature fixed by grpc.MethodHandler.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(MonitorServiceServer).ListDevices(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListDevicesMethod}

	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(MonitorServiceServer).ListDevices(ctx, req.(*emptypb.Empty))
	})
}

func getDeviceHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature fixed by grpc.MethodHandler.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(MonitorServiceServer).GetDevice(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetDeviceMethod}

	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(MonitorServiceServer).GetDevice(ctx, req.(*wrapperspb.StringValue))
	})
}

func forceSignalLossHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature fixed by grpc.MethodHandler.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(MonitorServiceServer).ForceSignalLoss(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ForceSignalLossMethod}

	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(MonitorServiceServer).ForceSignalLoss(ctx, req.(*wrapperspb.StringValue))
	})
}

// MonitorServiceClient is the client API of the control service.
type MonitorServiceClient interface {
	ListDevices(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetDevice(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	ForceSignalLoss(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type monitorServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewMonitorServiceClient creates a client over cc.
func NewMonitorServiceClient(cc grpc.ClientConnInterface) MonitorServiceClient {
	return &monitorServiceClient{cc: cc}
}

func (c *monitorServiceClient) ListDevices(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ListDevicesMethod, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *monitorServiceClient) GetDevice(
	ctx context.Context,
	in *wrapperspb.StringValue,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetDeviceMethod, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *monitorServiceClient) ForceSignalLoss(
	ctx context.Context,
	in *wrapperspb.StringValue,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ForceSignalLossMethod, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
