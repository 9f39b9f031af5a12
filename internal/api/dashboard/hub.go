package dashboard

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oshokin/pool-guard/internal/domain/alarm"
	"github.com/oshokin/pool-guard/internal/domain/device"
	"github.com/oshokin/pool-guard/internal/logger"
)

// Event names sent to WebSocket clients.
const (
	EventDeviceChanged = "device.changed"
	EventDeviceAlarm   = "device.alarm"
)

const (
	// sendBufferSize is the per-client outbound queue; slow clients are dropped when it fills.
	sendBufferSize = 256
	// writeWait bounds a single WebSocket write.
	writeWait = 10 * time.Second
	// pongWait is how long a client may stay silent before it is dropped.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = pongWait * 9 / 10
	// maxMessageSize caps inbound client frames.
	maxMessageSize = 512
)

// Message is one frame pushed to a WebSocket client.
type Message struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// AlarmPayload is the body of a device.alarm message.
type AlarmPayload struct {
	Device device.View `json:"device"`
	Actor  string      `json:"actor,omitempty"`
	Forced bool        `json:"forced"`
}

// Hub keeps the connected WebSocket clients and broadcasts device events.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// client is one browser connection.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	// once guards closing send.
	once sync.Once
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
	}
}

// OnDeviceChanged implements monitor.StateObserver.
func (h *Hub) OnDeviceChanged(ctx context.Context, snapshot device.Snapshot) {
	h.broadcast(ctx, EventDeviceChanged, snapshot.View())
}

// OnAlarm implements monitor.AlarmObserver.
func (h *Hub) OnAlarm(ctx context.Context, event *alarm.Event) {
	h.broadcast(ctx, EventDeviceAlarm, AlarmPayload{
		Device: event.Device.View(),
		Actor:  event.Actor.String(),
		Forced: event.Forced(),
	})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// Close disconnects every client; later connections are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true

	for c := range h.clients {
		c.closeSend()
		delete(h.clients, c)
	}
}

func (h *Hub) broadcast(ctx context.Context, event string, payload any) {
	data, err := encodeMessage(event, payload)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to marshal dashboard event", "event", event, "error", err)

		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.trySend(data) {
			logger.WarnKV(ctx, "Dropping slow dashboard client", "remote_addr", c.conn.RemoteAddr().String())
			h.unregister(c)
		}
	}
}

// register adds c; it returns false once the hub is closed.
func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}

	h.clients[c] = struct{}{}

	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if ok {
		c.closeSend()
	}
}

func encodeMessage(event string, payload any) ([]byte, error) {
	return json.Marshal(Message{
		Event:     event,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}

// trySend queues data without blocking; false means the queue is full.
func (c *client) trySend(data []byte) (ok bool) {
	defer func() {
		// send may have been closed concurrently by Close.
		if recover() != nil {
			ok = true
		}
	}()

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) closeSend() {
	c.once.Do(func() { close(c.send) })
}

// readPump discards client frames and keeps the read deadline alive.
func (c *client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WarnKV(ctx, "WebSocket read failed", "error", err)
			}

			return
		}
	}
}

// writePump drains send to the connection and pings on idle.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))

				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
