package zigbee

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/bnema/petminion/internal/ports"
)

const (
	DefaultTopic          = "zigbee2mqtt/feeder"
	defaultConnectTimeout = 5 * time.Second
	defaultPublishTimeout = 2 * time.Second
	disconnectQuiesceMs   = 250
)

var ErrNotConnected = errors.New("mqtt not connected")

type Config struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	Topic          string
	QoS            byte
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.ClientID == "" {
		c.ClientID = "petminion"
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = defaultPublishTimeout
	}
}

// feedCommand is the zigbee2mqtt payload understood by Tuya-style pet feeders.
type feedCommand struct {
	Feed        string `json:"feed"`
	Mode        string `json:"mode"`
	FeedingSize int    `json:"feeding_size"`
}

// Feeder drives a zigbee pet feeder through a zigbee2mqtt bridge.
type Feeder struct {
	cfg    Config
	client mqtt.Client
	logger *slog.Logger

	// set when the client resubscribes from its own OnConnect handler
	subscribesOnConnect bool

	mu        sync.RWMutex
	lastState map[string]any
}

var _ ports.Feeder = (*Feeder)(nil)

func New(cfg Config, logger *slog.Logger) *Feeder {
	cfg.applyDefaults()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	f := NewWithClient(nil, cfg, logger)
	f.subscribesOnConnect = true
	opts.OnConnect = func(c mqtt.Client) {
		f.logger.Info("mqtt connection established", "broker", cfg.Broker, "client_id", cfg.ClientID)
		f.subscribe(c)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		f.logger.Warn("mqtt connection lost, will auto-reconnect", "error", err, "broker", cfg.Broker)
	}
	f.client = mqtt.NewClient(opts)

	return f
}

// NewWithClient wraps an existing client. Subscription happens in Connect.
func NewWithClient(client mqtt.Client, cfg Config, logger *slog.Logger) *Feeder {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	return &Feeder{
		cfg:    cfg,
		client: client,
		logger: logger.With("feeder", "zigbee", "topic", cfg.Topic),
	}
}

func (f *Feeder) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.logger.Info("connecting to mqtt broker", "broker", f.cfg.Broker)
	token := f.client.Connect()
	if !token.WaitTimeout(f.cfg.ConnectTimeout) {
		return fmt.Errorf("mqtt connection timeout after %s", f.cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	if !f.subscribesOnConnect {
		f.subscribe(f.client)
	}
	return nil
}

func (f *Feeder) subscribe(c mqtt.Client) {
	token := c.Subscribe(f.cfg.Topic, f.cfg.QoS, f.onState)
	if !token.WaitTimeout(f.cfg.PublishTimeout) {
		f.logger.Warn("feeder state subscription timed out")
		return
	}
	if err := token.Error(); err != nil {
		f.logger.Warn("feeder state subscription failed", "error", err)
	}
}

func (f *Feeder) onState(_ mqtt.Client, msg mqtt.Message) {
	var state map[string]any
	if err := json.Unmarshal(msg.Payload(), &state); err != nil {
		f.logger.Debug("ignoring non-json feeder state", "error", err)
		return
	}

	f.mu.Lock()
	f.lastState = state
	f.mu.Unlock()

	f.logger.Debug("feeder state", "state", state)
}

// LastState is the most recent state the bridge reported for the feeder.
func (f *Feeder) LastState() map[string]any {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make(map[string]any, len(f.lastState))
	for k, v := range f.lastState {
		out[k] = v
	}
	return out
}

func (f *Feeder) Feed(ctx context.Context, portions int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if portions <= 0 {
		return fmt.Errorf("feed %d portions: count must be positive", portions)
	}
	if !f.client.IsConnectionOpen() {
		return ErrNotConnected
	}

	payload, err := json.Marshal(feedCommand{Feed: "START", Mode: "manual", FeedingSize: portions})
	if err != nil {
		return fmt.Errorf("encode feed command: %w", err)
	}

	topic := f.cfg.Topic + "/set"
	token := f.client.Publish(topic, f.cfg.QoS, false, payload)
	if !token.WaitTimeout(f.cfg.PublishTimeout) {
		return fmt.Errorf("publish feed command: timeout after %s", f.cfg.PublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish feed command: %w", err)
	}

	f.logger.Info("feed command sent", "portions", portions)
	return nil
}

func (f *Feeder) Close() {
	if f.client != nil && f.client.IsConnected() {
		f.client.Disconnect(disconnectQuiesceMs)
		f.logger.Info("mqtt disconnected")
	}
}
