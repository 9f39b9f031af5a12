package ingest

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServer_AcceptsAndShutsDown(t *testing.T) {
	t.Parallel()

	applier := newFakeApplier("Device0", "Device1")

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	srv, err := Listen(ctx, "127.0.0.1:0", NewHandler(applier))
	require.NoError(t, err)

	served := make(chan error, 1)

	go func() {
		served <- srv.Serve(ctx)
	}()

	first, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)

	defer first.Close()

	second, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)

	defer second.Close()

	_, err = first.Write([]byte("Device0 45 100 50\n"))
	require.NoError(t, err)

	_, err = second.Write([]byte("Device1 5 10 10\n"))
	require.NoError(t, err)

	for range 2 {
		select {
		case <-applier.signal:
		case <-time.After(5 * time.Second):
			t.Fatal("telemetry was not applied")
		}
	}

	require.ElementsMatch(t, []Telemetry{
		{DeviceID: "Device0", Battery: 45, X: 100, Y: 50},
		{DeviceID: "Device1", Battery: 5, X: 10, Y: 10},
	}, applier.snapshot())

	cancel()

	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	// Server side closed the client connections.
	require.NoError(t, first.SetReadDeadline(time.Now().Add(5*time.Second)))

	_, err = first.Read(make([]byte, 1))
	require.ErrorIs(t, err, io.EOF)

	_, err = net.Dial("tcp", srv.Addr().String())
	require.Error(t, err)
}

func TestListen_BindFailure(t *testing.T) {
	t.Parallel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	defer lis.Close()

	_, err = Listen(t.Context(), lis.Addr().String(), NewHandler(newFakeApplier()))
	require.Error(t, err)
}
