package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	defaultTopicPrefix = "garage"
	publishQoS         = 1
	connectTimeout     = 10 * time.Second
)

// MQTTConfig holds broker settings. Broker is a URL such as tcp://localhost:1883.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// MQTTNotifier publishes status events as JSON to <prefix>/<vehicle>/status.
type MQTTNotifier struct {
	client mqtt.Client
	prefix string
}

// NewMQTTNotifier connects to the broker.
func NewMQTTNotifier(cfg MQTTConfig) (*MQTTNotifier, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt broker not configured")
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "garage-" + uuid.NewString()[:8]
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s: timed out", cfg.Broker)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, err)
	}
	log.WithFields(log.Fields{"broker": cfg.Broker, "client_id": clientID}).Info("Connected to MQTT broker")
	return newMQTTNotifier(client, cfg.TopicPrefix), nil
}

func newMQTTNotifier(client mqtt.Client, prefix string) *MQTTNotifier {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = defaultTopicPrefix
	}
	return &MQTTNotifier{client: client, prefix: prefix}
}

// Topic returns the topic a vehicle's events are published on.
func (n *MQTTNotifier) Topic(vehicleNumber string) string {
	return TopicFor(n.prefix, vehicleNumber)
}

// TopicFor builds <prefix>/<vehicle>/status. MQTT wildcard and separator
// characters in the vehicle number are replaced with '_'.
func TopicFor(prefix, vehicleNumber string) string {
	v := strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(strings.TrimSpace(vehicleNumber))
	return prefix + "/" + v + "/status"
}

func (n *MQTTNotifier) StatusChanged(ctx context.Context, ev StatusEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode status event: %w", err)
	}
	topic := n.Topic(ev.VehicleNumber)
	tok := n.client.Publish(topic, publishQoS, false, body)
	select {
	case <-tok.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	log.WithFields(log.Fields{"topic": topic, "service": ev.Service, "status": ev.Status}).Debug("Status event published")
	return nil
}

func (n *MQTTNotifier) Close() {
	n.client.Disconnect(250)
}
