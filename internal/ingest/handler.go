package ingest

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/google/uuid"

	"github.com/oshokin/pool-guard/internal/logger"
	"github.com/oshokin/pool-guard/internal/monitor"
)

// maxLineSize caps a single telemetry line.
const maxLineSize = 4096

// TelemetryApplier applies a parsed update to a device.
type TelemetryApplier interface {
	ApplyTelemetry(ctx context.Context, id string, battery, x, y int) error
}

// Handler services one client connection.
type Handler struct {
	applier TelemetryApplier
}

// NewHandler creates a handler feeding updates to applier.
func NewHandler(applier TelemetryApplier) *Handler {
	return &Handler{applier: applier}
}

// Serve reads lines from conn until EOF, a read error or ctx cancellation.
// The connection is closed on return.
func (h *Handler) Serve(ctx context.Context, conn net.Conn) {
	ctx = logger.WithKV(ctx,
		"conn_id", uuid.NewString(),
		"remote_addr", conn.RemoteAddr().String())

	defer func() {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logger.DebugKV(ctx, "Failed to close connection", "error", err)
		}
	}()

	logger.Info(ctx, "Client connected")

	err := h.consume(ctx, conn)

	switch {
	case err == nil, errors.Is(err, io.EOF):
		logger.Info(ctx, "Client disconnected")
	case errors.Is(err, net.ErrClosed) || ctx.Err() != nil:
		logger.Info(ctx, "Connection closed on shutdown")
	default:
		logger.ErrorKV(ctx, "Connection read failed", "error", err)
	}
}

// errLineTooLong marks a line longer than maxLineSize; it is skipped.
var errLineTooLong = errors.New("line exceeds maximum size")

// consume processes lines from r and returns the terminal read error.
// Over-long lines are discarded up to the next newline and reading goes on.
func (h *Handler) consume(ctx context.Context, r io.Reader) error {
	reader := bufio.NewReaderSize(r, maxLineSize)

	for {
		line, err := readLine(reader)

		switch {
		case errors.Is(err, errLineTooLong):
			logger.WarnKV(ctx, "Dropping oversized telemetry line", "max_bytes", maxLineSize)

			continue
		case err != nil:
			return err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		h.handleLine(ctx, line)
	}
}

// readLine returns the next line without its terminator. A final line
// without a newline is returned before io.EOF.
func readLine(r *bufio.Reader) (string, error) {
	data, err := r.ReadSlice('\n')

	switch {
	case err == nil:
	case errors.Is(err, bufio.ErrBufferFull):
		return "", discardLine(r)
	case errors.Is(err, io.EOF) && len(data) > 0:
	default:
		return "", err
	}

	line := strings.TrimSuffix(string(data), "\n")

	return strings.TrimSuffix(line, "\r"), nil
}

// discardLine skips the rest of an over-long line. It reports
// errLineTooLong once the newline is consumed, or the read error.
func discardLine(r *bufio.Reader) error {
	for {
		_, err := r.ReadSlice('\n')

		switch {
		case err == nil:
			return errLineTooLong
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		default:
			return err
		}
	}
}

// handleLine parses and applies one line; failures are logged and dropped.
func (h *Handler) handleLine(ctx context.Context, line string) {
	if strings.TrimSpace(line) == "" {
		return
	}

	t, err := ParseLine(line)
	if err != nil {
		logger.WarnKV(ctx, "Dropping malformed telemetry", "line", line, "error", err)

		return
	}

	err = h.applier.ApplyTelemetry(ctx, t.DeviceID, t.Battery, t.X, t.Y)

	switch {
	case err == nil:
	case errors.Is(err, monitor.ErrDeviceNotFound):
		logger.WarnKV(ctx, "Dropping telemetry for unknown device", "device_id", t.DeviceID)
	default:
		logger.ErrorKV(ctx, "Failed to apply telemetry", "device_id", t.DeviceID, "error", err)
	}
}
