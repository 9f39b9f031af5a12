package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the pool-guard binaries.
type Config struct {
	// ListenAddress is the TCP address the telemetry ingestion server binds.
	ListenAddress string `yaml:"listen_addr"`
	// ControlAddress is the gRPC address of the monitor control API.
	ControlAddress string `yaml:"control_addr"`
	// DashboardAddress is the HTTP address of the dashboard; empty disables it.
	DashboardAddress string `yaml:"dashboard_addr"`
	// LogLevel is the minimum level written by the process logger.
	LogLevel string `yaml:"log_level"`
	// Timeout is the duration for network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// CheckInterval is the watchdog period of every device.
	CheckInterval time.Duration `yaml:"check_interval"`
	// LowBatteryThreshold is the battery percentage below which a device is LOW_BATTERY.
	LowBatteryThreshold int `yaml:"low_battery_threshold"`
	// WarningTimeout is the signal silence after which a device is WARNING.
	WarningTimeout time.Duration `yaml:"warning_timeout"`
	// DrowningTimeout is the signal silence after which a device is DROWNING.
	DrowningTimeout time.Duration `yaml:"drowning_timeout"`
	// MovementAfter is the silence after which the watchdog simulates movement.
	MovementAfter time.Duration `yaml:"movement_after"`
	// Pool describes the bounded area device positions live in.
	Pool Pool `yaml:"pool"`
	// DeviceCount is the number of generated devices when Devices is empty.
	DeviceCount int `yaml:"device_count"`
	// Devices is the explicit, fixed device set.
	Devices []Device `yaml:"devices"`
	// Alarm selects where drowning alarms are delivered.
	Alarm Alarm `yaml:"alarm"`
	// Credentials gate the dashboard.
	Credentials Credentials `yaml:"credentials"`
	// MQTT configures the optional broker connection.
	MQTT MQTT `yaml:"mqtt"`
	// BusBuffer presizes the event bus queues.
	BusBuffer int `yaml:"bus_buffer"`
}

// Pool is the bounded area of the swimming pool, inclusive on both axes.
type Pool struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Device is one configured wearable. Nil fields are randomised at startup.
type Device struct {
	ID      string `yaml:"id"`
	Battery *int   `yaml:"battery,omitempty"`
	X       *int   `yaml:"x,omitempty"`
	Y       *int   `yaml:"y,omitempty"`
}

// Alarm lists the alarm sinks by name: log, beep, mqtt or none.
type Alarm struct {
	Sinks []string `yaml:"sinks"`
}

// Credentials is the static login accepted by the dashboard.
type Credentials struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTT holds broker connection parameters.
type MQTT struct {
	Enabled     bool   `yaml:"enabled"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	QoS         int    `yaml:"qos"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// Alarm sink names accepted in Alarm.Sinks.
const (
	SinkLog  = "log"
	SinkBeep = "beep"
	SinkMQTT = "mqtt"
	SinkNone = "none"
)

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "pool-guard-settings.yaml"

	// DefaultListenAddress is the default telemetry ingestion address.
	DefaultListenAddress = ":8888"

	// DefaultControlAddress is the default gRPC control API address.
	DefaultControlAddress = "127.0.0.1:8889"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultCheckInterval is the default watchdog period.
	DefaultCheckInterval = 2 * time.Second

	// DefaultLowBatteryThreshold is the default low battery percentage.
	DefaultLowBatteryThreshold = 10

	// DefaultWarningTimeout is the default silence before WARNING.
	DefaultWarningTimeout = 10 * time.Second

	// DefaultDrowningTimeout is the default silence before DROWNING.
	DefaultDrowningTimeout = 30 * time.Second

	// DefaultMovementAfter is the default silence before simulated movement.
	DefaultMovementAfter = 5 * time.Second

	// DefaultPoolWidth and DefaultPoolHeight bound device positions.
	DefaultPoolWidth  = 500
	DefaultPoolHeight = 250

	// DefaultDeviceCount is the number of generated devices.
	DefaultDeviceCount = 5

	// DefaultDevicePrefix prefixes generated device identifiers.
	DefaultDevicePrefix = "Device"

	// DefaultBusBuffer is the default event bus presize.
	DefaultBusBuffer = 256

	// DefaultUsername and DefaultPassword are the built-in dashboard login.
	DefaultUsername = "admin"
	DefaultPassword = "password"

	// DefaultMQTTPort is the default broker port.
	DefaultMQTTPort = 1883

	// DefaultTopicPrefix is the default MQTT topic root.
	DefaultTopicPrefix = "poolguard"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// maxBattery is the upper bound of a configured battery level.
	maxBattery = 100
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errTimeoutOrder is returned when WARNING would fire after DROWNING.
	errTimeoutOrder = errors.New("warning timeout must be shorter than drowning timeout")
	// errInvalidPool is returned for non-positive pool dimensions.
	errInvalidPool = errors.New("pool dimensions must be positive")
	// errInvalidDeviceID is returned for empty ids or ids with whitespace.
	errInvalidDeviceID = errors.New("device id must be non-empty and contain no whitespace")
	// errDuplicateDevice is returned when a device id is configured twice.
	errDuplicateDevice = errors.New("duplicate device id")
	// errBatteryOutOfRange is returned for batteries outside 0..100.
	errBatteryOutOfRange = errors.New("battery must be within 0..100")
	// errPositionOutOfBounds is returned for positions outside the pool.
	errPositionOutOfBounds = errors.New("position is outside the pool")
	// errUnknownSink is returned for unsupported alarm sink names.
	errUnknownSink = errors.New("unknown alarm sink")
	// errMQTTHostRequired is returned when MQTT is enabled without a broker host.
	errMQTTHostRequired = errors.New("mqtt host must be provided when mqtt is enabled")
	// errInvalidQoS is returned for QoS values outside 0..2.
	errInvalidQoS = errors.New("mqtt qos must be 0, 1 or 2")
)

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault behaves like Load but returns validated defaults when the
// file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = new(Config)
		if err = Validate(cfg); err != nil {
			return nil, err
		}

		return cfg, nil
	}

	return cfg, err
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions, the file holds the dashboard password.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks the settings for consistency.
//
//nolint:cyclop,funlen // Flat list of field checks reads better than helpers.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	applyDefaults(settings)

	if _, err := net.ResolveTCPAddr("tcp", settings.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ControlAddress); err != nil {
		return fmt.Errorf("invalid control address: %w", err)
	}

	if settings.DashboardAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", settings.DashboardAddress); err != nil {
			return fmt.Errorf("invalid dashboard address: %w", err)
		}
	}

	if settings.WarningTimeout >= settings.DrowningTimeout {
		return errTimeoutOrder
	}

	if settings.Pool.Width <= 0 || settings.Pool.Height <= 0 {
		return errInvalidPool
	}

	seen := make(map[string]struct{}, len(settings.Devices))

	for _, d := range settings.Devices {
		if d.ID == "" || strings.ContainsFunc(d.ID, unicode.IsSpace) {
			return fmt.Errorf("%w: %q", errInvalidDeviceID, d.ID)
		}

		if _, ok := seen[d.ID]; ok {
			return fmt.Errorf("%w: %s", errDuplicateDevice, d.ID)
		}

		seen[d.ID] = struct{}{}

		if d.Battery != nil && (*d.Battery < 0 || *d.Battery > maxBattery) {
			return fmt.Errorf("device %s: %w", d.ID, errBatteryOutOfRange)
		}

		if d.X != nil && (*d.X < 0 || *d.X > settings.Pool.Width) {
			return fmt.Errorf("device %s: %w", d.ID, errPositionOutOfBounds)
		}

		if d.Y != nil && (*d.Y < 0 || *d.Y > settings.Pool.Height) {
			return fmt.Errorf("device %s: %w", d.ID, errPositionOutOfBounds)
		}
	}

	for _, sink := range settings.Alarm.Sinks {
		if !slices.Contains([]string{SinkLog, SinkBeep, SinkMQTT, SinkNone}, sink) {
			return fmt.Errorf("%w: %q", errUnknownSink, sink)
		}
	}

	if settings.MQTT.QoS < 0 || settings.MQTT.QoS > 2 {
		return errInvalidQoS
	}

	if settings.MQTT.Enabled && settings.MQTT.Host == "" {
		return errMQTTHostRequired
	}

	return nil
}

// DeviceIDs returns the identifiers of the configured or generated devices
// in slot order.
func (c *Config) DeviceIDs() []string {
	if len(c.Devices) > 0 {
		ids := make([]string, 0, len(c.Devices))
		for _, d := range c.Devices {
			ids = append(ids, d.ID)
		}

		return ids
	}

	ids := make([]string, 0, c.DeviceCount)
	for i := range c.DeviceCount {
		ids = append(ids, fmt.Sprintf("%s%d", DefaultDevicePrefix, i))
	}

	return ids
}

// applyDefaults sets every zero-valued option to its default.
func applyDefaults(settings *Config) {
	if settings.ListenAddress == "" {
		settings.ListenAddress = DefaultListenAddress
	}

	if settings.ControlAddress == "" {
		settings.ControlAddress = DefaultControlAddress
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.CheckInterval <= 0 {
		settings.CheckInterval = DefaultCheckInterval
	}

	if settings.LowBatteryThreshold <= 0 {
		settings.LowBatteryThreshold = DefaultLowBatteryThreshold
	}

	if settings.WarningTimeout <= 0 {
		settings.WarningTimeout = DefaultWarningTimeout
	}

	if settings.DrowningTimeout <= 0 {
		settings.DrowningTimeout = DefaultDrowningTimeout
	}

	if settings.MovementAfter <= 0 {
		settings.MovementAfter = DefaultMovementAfter
	}

	if settings.Pool.Width == 0 {
		settings.Pool.Width = DefaultPoolWidth
	}

	if settings.Pool.Height == 0 {
		settings.Pool.Height = DefaultPoolHeight
	}

	if settings.DeviceCount <= 0 {
		settings.DeviceCount = DefaultDeviceCount
	}

	if len(settings.Alarm.Sinks) == 0 {
		settings.Alarm.Sinks = []string{SinkLog}
	}

	if settings.Credentials.Username == "" {
		settings.Credentials.Username = DefaultUsername
	}

	if settings.Credentials.Password == "" {
		settings.Credentials.Password = DefaultPassword
	}

	if settings.MQTT.Port == 0 {
		settings.MQTT.Port = DefaultMQTTPort
	}

	if settings.MQTT.TopicPrefix == "" {
		settings.MQTT.TopicPrefix = DefaultTopicPrefix
	}

	if settings.BusBuffer <= 0 {
		settings.BusBuffer = DefaultBusBuffer
	}
}
