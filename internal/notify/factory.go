package notify

import (
	"errors"
	"fmt"
	"io"

	"github.com/oshokin/pool-guard/internal/config"
	"github.com/oshokin/pool-guard/internal/monitor"
)

// ErrBrokerRequired is returned when the mqtt sink is selected without a broker.
var ErrBrokerRequired = errors.New("mqtt alarm sink requires an enabled mqtt connection")

// ErrUnknownSink is returned for unsupported sink names.
var ErrUnknownSink = errors.New("unknown alarm sink")

// BuildSinks turns configured sink names into sinks. out receives the beep
// sink output; broker may be nil when MQTT is disabled.
func BuildSinks(names []string, out io.Writer, broker Broker) ([]monitor.AlarmSink, error) {
	sinks := make([]monitor.AlarmSink, 0, len(names))

	for _, name := range names {
		switch name {
		case config.SinkLog:
			sinks = append(sinks, LogSink{})
		case config.SinkBeep:
			sinks = append(sinks, NewBeepSink(out))
		case config.SinkMQTT:
			if broker == nil {
				return nil, ErrBrokerRequired
			}

			sinks = append(sinks, NewMQTTSink(broker))
		case config.SinkNone:
			sinks = append(sinks, NopSink{})
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownSink, name)
		}
	}

	return sinks, nil
}
