package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/maintenance-hub/internal/config"
	"github.com/ukydev/maintenance-hub/internal/metrics"
	"github.com/ukydev/maintenance-hub/internal/models"
)

const mqttConnectTimeout = 10 * time.Second

// publisher is the part of mqtt.Client the notifier needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTNotifier publishes assignment events to a per-technician topic.
type MQTTNotifier struct {
	client publisher
	prefix string
	qos    byte
	close  func()
	now    func() time.Time
}

// NewMQTTNotifier connects to the broker described by cfg.
func NewMQTTNotifier(cfg config.MQTTConfig) (*MQTTNotifier, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttConnectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("connect to %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}
	log.WithField("broker", cfg.Broker).Info("Connected to MQTT broker")

	n := newMQTTNotifier(client, cfg.TopicPrefix, cfg.QoS)
	n.close = func() { client.Disconnect(250) }
	return n, nil
}

func newMQTTNotifier(client publisher, prefix string, qos byte) *MQTTNotifier {
	return &MQTTNotifier{client: client, prefix: prefix, qos: qos, close: func() {}, now: time.Now}
}

// Topic is where assignments for technicianID are published.
func (n *MQTTNotifier) Topic(technicianID string) string {
	return fmt.Sprintf("%s/technicians/%s/assignments", n.prefix, technicianID)
}

func (n *MQTTNotifier) NotifyAssignment(ctx context.Context, technician *models.User, req *models.MaintenanceRequest) error {
	payload, err := json.Marshal(NewAssignmentEvent(technician, req, n.now().UTC()))
	if err != nil {
		return err
	}

	token := n.client.Publish(n.Topic(technician.ID.Hex()), n.qos, false, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			metrics.NotificationFailures.WithLabelValues("mqtt").Inc()
			return fmt.Errorf("mqtt publish: %w", err)
		}
		return nil
	case <-ctx.Done():
		metrics.NotificationFailures.WithLabelValues("mqtt").Inc()
		return fmt.Errorf("mqtt publish: %w", ctx.Err())
	}
}

// Close disconnects from the broker.
func (n *MQTTNotifier) Close() {
	n.close()
}
