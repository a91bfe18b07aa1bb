package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

const (
	publishQoS     byte = 1
	publishTimeout      = 5 * time.Second
	connectTimeout      = 10 * time.Second
)

// tokenPublisher is the part of mqtt.Client used for publishing.
type tokenPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher sends events to {prefix}/{school_id}/bookings/{action}.
type MQTTPublisher struct {
	client tokenPublisher
	prefix string
	close  func()
}

// NewMQTTPublisher connects to brokerURL and returns a publisher.
// The paho client reconnects on its own after the initial connection succeeded.
func NewMQTTPublisher(brokerURL, clientID, topicPrefix string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("mqtt connection lost")
		}).
		SetOnConnectHandler(func(mqtt.Client) {
			log.WithField("broker", brokerURL).Info("mqtt connected")
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s: timeout", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", brokerURL, err)
	}

	return &MQTTPublisher{
		client: client,
		prefix: strings.Trim(topicPrefix, "/"),
		close:  func() { client.Disconnect(250) },
	}, nil
}

func Topic(prefix, schoolID string, t Type) string {
	action := strings.TrimPrefix(string(t), "booking.")
	return fmt.Sprintf("%s/%s/bookings/%s", prefix, schoolID, action)
}

func (p *MQTTPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	token := p.client.Publish(Topic(p.prefix, e.SchoolID, e.Type), publishQoS, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return fmt.Errorf("publish %s: timeout", e.Type)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

func (p *MQTTPublisher) Close() {
	if p.close != nil {
		p.close()
	}
}
