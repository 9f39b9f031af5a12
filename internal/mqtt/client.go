package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/oshokin/pool-guard/internal/config"
	"github.com/oshokin/pool-guard/internal/logger"
)

// Client wraps paho.mqtt.golang with pool-guard topics and status handling.
// All methods are safe for concurrent use.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTT
	id     string
	topics Topics

	// connected tracks the last known connection state.
	connected bool
	connMu    sync.RWMutex

	// ctx carries the logger used by paho callbacks.
	ctx context.Context //nolint:containedctx // Callbacks run outside any request.
}

// Connect dials the broker, registers the LWT and publishes the online status.
func Connect(ctx context.Context, cfg config.MQTT) (*Client, error) {
	ctx = logger.WithName(ctx, "mqtt")

	id := clientID(cfg)
	topics := NewTopics(cfg.TopicPrefix)

	opts := buildClientOptions(cfg, id)
	configureLWT(opts, topics, id)

	c := &Client{
		cfg:    cfg,
		id:     id,
		topics: topics,
		ctx:    ctx,
	}

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})

	c.client = pahomqtt.NewClient(opts)

	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}

	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnect callback runs asynchronously, so mark the state here too.
	c.setConnected(true)

	logger.InfoKV(ctx, "Connected to MQTT broker", "host", cfg.Host, "port", cfg.Port, "client_id", id)

	return c, nil
}

// Topics returns the topic builders of this client.
func (c *Client) Topics() Topics {
	return c.topics
}

// QoS returns the configured default QoS.
func (c *Client) QoS() byte {
	return byte(c.cfg.QoS) //nolint:gosec // Validated to 0..2 by config.
}

func (c *Client) handleConnect() {
	c.setConnected(true)

	c.client.Publish(c.topics.SystemStatus(), c.QoS(), true, statusPayload("online", c.id, ""))
}

func (c *Client) handleDisconnect(err error) {
	c.setConnected(false)

	logger.WarnKV(c.ctx, "MQTT connection lost", "error", err)
}

func (c *Client) setConnected(v bool) {
	c.connMu.Lock()
	c.connected = v
	c.connMu.Unlock()
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()

	return c.connected && c.client != nil && c.client.IsConnected()
}

// Close publishes a graceful offline status and disconnects.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if c.IsConnected() {
		token := c.client.Publish(c.topics.SystemStatus(), c.QoS(), true,
			statusPayload("offline", c.id, "graceful_shutdown"))
		token.WaitTimeout(defaultPublishTimeout)
	}

	c.client.Disconnect(defaultDisconnectQuiesce)
	c.setConnected(false)

	logger.Info(c.ctx, "Disconnected from MQTT broker")

	return nil
}
