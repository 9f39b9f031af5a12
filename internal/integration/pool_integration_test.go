package integration

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/pool-guard/internal/api/dashboard"
	"github.com/oshokin/pool-guard/internal/config"
	"github.com/oshokin/pool-guard/internal/domain/alarm"
	"github.com/oshokin/pool-guard/internal/domain/device"
	"github.com/oshokin/pool-guard/internal/service/common"
	"github.com/oshokin/pool-guard/internal/service/server"
)

// syncBuffer collects alarm output written from the bus goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func intPtr(v int) *int {
	return &v
}

// startServer runs a real pool server on loopback ports and stops it on cleanup.
func startServer(t *testing.T) (*server.Server, *syncBuffer) {
	t.Helper()

	cfg := &config.Config{
		ListenAddress:    "127.0.0.1:0",
		ControlAddress:   "127.0.0.1:0",
		DashboardAddress: "127.0.0.1:0",
		Devices: []config.Device{
			{ID: "Device0", Battery: intPtr(80), X: intPtr(10), Y: intPtr(10)},
			{ID: "Device1", Battery: intPtr(60), X: intPtr(20), Y: intPtr(20)},
			{ID: "Device2", Battery: intPtr(40), X: intPtr(30), Y: intPtr(30)},
		},
		Alarm:       config.Alarm{Sinks: []string{config.SinkBeep}},
		Credentials: config.Credentials{Username: "lifeguard", Password: "secret"},
	}
	require.NoError(t, config.Validate(cfg))

	out := new(syncBuffer)

	ctx, cancel := context.WithCancel(context.Background())

	srv, err := server.New(ctx, cfg, out)
	require.NoError(t, err)

	done := make(chan error, 1)

	go func() {
		done <- srv.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("server did not stop")
		}
	})

	return srv, out
}

func dialControl(t *testing.T, srv *server.Server) *common.Client {
	t.Helper()

	c, err := common.Dial(t.Context(), srv.ControlAddr().String(), common.WithCallTimeout(3*time.Second))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = c.Close()
	})

	return c
}

// TestPool_TelemetryAndControl sends telemetry over TCP and reads it back
// through the control API.
func TestPool_TelemetryAndControl(t *testing.T) {
	t.Parallel()

	srv, _ := startServer(t)
	c := dialControl(t, srv)

	conn, err := net.Dial("tcp", srv.IngestAddr().String())
	require.NoError(t, err)

	defer conn.Close()

	// Malformed and unknown lines are dropped without closing the connection.
	_, err = fmt.Fprint(conn, "garbage\nDevice9 50 1 1\nDevice0 45 100 50\nDevice1 5 10 10\n")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s, err := c.GetDevice(t.Context(), "Device1")

		return err == nil && s.Battery == 5
	}, 5*time.Second, 20*time.Millisecond)

	raw, devices, err := c.ListDevices(t.Context())
	require.NoError(t, err)
	require.NotNil(t, raw.GetFields()["devices"])
	require.Len(t, devices, 3)

	require.Equal(t, "Device0", devices[0].ID)
	require.Equal(t, 45, devices[0].Battery)
	require.Equal(t, device.Position{X: 100, Y: 50}, devices[0].Position)
	require.Equal(t, device.StatusNormal, devices[0].Status)

	require.Equal(t, "Device1", devices[1].ID)
	require.Equal(t, 1, devices[1].Slot)
	require.Equal(t, device.StatusLowBattery, devices[1].Status)

	_, err = c.GetDevice(t.Context(), "Device9")
	require.Error(t, err)
	require.Equal(t, codes.NotFound, status.Code(err))
}

// TestPool_ForcedSignalLoss drills one device into DROWNING and back.
func TestPool_ForcedSignalLoss(t *testing.T) {
	t.Parallel()

	srv, out := startServer(t)
	c := dialControl(t, srv)

	actor := &alarm.Actor{Username: "coach", Hostname: "poolside"}

	s, err := c.ForceSignalLoss(t.Context(), "Device2", actor)
	require.NoError(t, err)
	require.Equal(t, device.StatusDrowning, s.Status)

	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("Device2 is drowning at (30, 30)"))
	}, 5*time.Second, 20*time.Millisecond)

	// A second request during the same episode raises nothing new.
	_, err = c.ForceSignalLoss(t.Context(), "Device2", actor)
	require.NoError(t, err)

	_, err = c.ForceSignalLoss(t.Context(), "Nobody", actor)
	require.Equal(t, codes.NotFound, status.Code(err))

	conn, err := net.Dial("tcp", srv.IngestAddr().String())
	require.NoError(t, err)

	defer conn.Close()

	_, err = fmt.Fprint(conn, "Device2 70 40 40\n")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s, err := c.GetDevice(t.Context(), "Device2")

		return err == nil && s.Status == device.StatusNormal
	}, 5*time.Second, 20*time.Millisecond)

	require.Equal(t, 1, bytes.Count([]byte(out.String()), []byte("Device2 is drowning")))
}

// TestPool_DashboardStream watches an alarm arrive over the dashboard WebSocket.
func TestPool_DashboardStream(t *testing.T) {
	t.Parallel()

	srv, _ := startServer(t)
	c := dialControl(t, srv)

	header := http.Header{}
	header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("lifeguard:secret")))

	url := "ws://" + srv.DashboardAddr().String() + "/ws"

	ws, resp, err := websocket.DefaultDialer.DialContext(t.Context(), url, header)
	require.NoError(t, err)
	resp.Body.Close()

	defer ws.Close()

	// Initial state arrives first, one message per device.
	for range 3 {
		var msg dashboard.Message
		require.NoError(t, ws.ReadJSON(&msg))
		require.Equal(t, dashboard.EventDeviceChanged, msg.Event)
	}

	_, err = c.ForceSignalLoss(t.Context(), "Device1", &alarm.Actor{Username: "coach", Hostname: "poolside"})
	require.NoError(t, err)

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))

	for {
		var msg struct {
			Event   string          `json:"event"`
			Payload json.RawMessage `json:"payload"`
		}

		require.NoError(t, ws.ReadJSON(&msg))

		if msg.Event != dashboard.EventDeviceAlarm {
			continue
		}

		var payload dashboard.AlarmPayload
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		require.Equal(t, "Device1", payload.Device.ID)
		require.Equal(t, device.StatusDrowning.String(), payload.Device.Status)
		require.Equal(t, "coach@poolside", payload.Actor)
		require.True(t, payload.Forced)

		return
	}
}
