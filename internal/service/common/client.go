//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	api "github.com/oshokin/pool-guard/internal/api/grpc/monitor"
	"github.com/oshokin/pool-guard/internal/config"
	"github.com/oshokin/pool-guard/internal/domain/alarm"
	"github.com/oshokin/pool-guard/internal/domain/device"
)

// Client wraps the gRPC MonitorService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the pool server.
	conn *grpc.ClientConn
	// api is the MonitorService client.
	api api.MonitorServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errDeviceIDRequired is returned when a device id is empty.
	errDeviceIDRequired = errors.New("device id must be provided")
)

// Dial establishes a gRPC connection to the pool server's control API.
// Note: this uses insecure transport credentials; deploy on a trusted network.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial pool server: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         api.NewMonitorServiceClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// ListDevices returns the raw response and its decoded snapshots.
func (c *Client) ListDevices(ctx context.Context) (*structpb.Struct, []device.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.ListDevices(callCtx, &emptypb.Empty{})
	if err != nil {
		return nil, nil, fmt.Errorf("list devices: %w", err)
	}

	devices, err := api.ListFromStruct(resp)
	if err != nil {
		return nil, nil, fmt.Errorf("decode devices: %w", err)
	}

	return resp, devices, nil
}

// GetDevice returns one device snapshot.
func (c *Client) GetDevice(ctx context.Context, id string) (device.Snapshot, error) {
	if id == "" {
		return device.Snapshot{}, errDeviceIDRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetDevice(callCtx, wrapperspb.String(id))
	if err != nil {
		return device.Snapshot{}, fmt.Errorf("get device %s: %w", id, err)
	}

	return api.FromStruct(resp)
}

// ForceSignalLoss asks the server to treat a device as silent. actor is sent
// as x-actor metadata and may be nil.
func (c *Client) ForceSignalLoss(ctx context.Context, id string, actor *alarm.Actor) (device.Snapshot, error) {
	if id == "" {
		return device.Snapshot{}, errDeviceIDRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if actor != nil {
		callCtx = metadata.AppendToOutgoingContext(callCtx, api.ActorMetadataKey, actor.String())
	}

	resp, err := c.api.ForceSignalLoss(callCtx, wrapperspb.String(id))
	if err != nil {
		return device.Snapshot{}, fmt.Errorf("force signal loss on %s: %w", id, err)
	}

	return api.FromStruct(resp)
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
