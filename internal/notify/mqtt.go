package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oshokin/pool-guard/internal/domain/alarm"
	"github.com/oshokin/pool-guard/internal/domain/device"
	"github.com/oshokin/pool-guard/internal/logger"
	"github.com/oshokin/pool-guard/internal/mqtt"
)

// Broker is the subset of *mqtt.Client used here.
type Broker interface {
	Topics() mqtt.Topics
	PublishRetained(topic string, payload []byte) error
	PublishEvent(topic string, payload []byte) error
}

// alarmPayload is the JSON body published on a device alarm topic.
type alarmPayload struct {
	Device    device.View `json:"device"`
	Actor     string      `json:"actor,omitempty"`
	Forced    bool        `json:"forced"`
	Timestamp time.Time   `json:"timestamp"`
}

// MQTTSink publishes alarms on {prefix}/device/{id}/alarm.
type MQTTSink struct {
	broker Broker
}

// NewMQTTSink creates an alarm sink backed by broker.
func NewMQTTSink(broker Broker) *MQTTSink {
	return &MQTTSink{broker: broker}
}

// Notify implements monitor.AlarmSink.
func (s *MQTTSink) Notify(_ context.Context, event *alarm.Event) error {
	payload, err := json.Marshal(alarmPayload{
		Device:    event.Device.View(),
		Actor:     event.Actor.String(),
		Forced:    event.Forced(),
		Timestamp: event.Timestamp.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal alarm: %w", err)
	}

	if err := s.broker.PublishEvent(s.broker.Topics().DeviceAlarm(event.Device.ID), payload); err != nil {
		return fmt.Errorf("publish alarm for %s: %w", event.Device.ID, err)
	}

	return nil
}

// StatePublisher mirrors every device change to a retained MQTT topic.
type StatePublisher struct {
	broker Broker
}

// NewStatePublisher creates a state observer backed by broker.
func NewStatePublisher(broker Broker) *StatePublisher {
	return &StatePublisher{broker: broker}
}

// OnDeviceChanged implements monitor.StateObserver.
func (p *StatePublisher) OnDeviceChanged(ctx context.Context, snapshot device.Snapshot) {
	payload, err := json.Marshal(snapshot.View())
	if err != nil {
		logger.ErrorKV(ctx, "Failed to marshal device state", "device_id", snapshot.ID, "error", err)

		return
	}

	if err := p.broker.PublishRetained(p.broker.Topics().DeviceState(snapshot.ID), payload); err != nil {
		logger.WarnKV(ctx, "Failed to publish device state", "device_id", snapshot.ID, "error", err)
	}
}
