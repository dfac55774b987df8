package publish

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// DefaultClientID identifies this program to the broker.
const DefaultClientID = "glucoscape"

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client paho.Client
	topic  string
}

// NewRealPublisher creates a publisher connected to the given broker.
func NewRealPublisher(broker, topic string) (*RealPublisher, error) {
	if topic == "" {
		topic = DefaultTopic
	}
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(DefaultClientID).
		SetAutoReconnect(true)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &RealPublisher{
		client: client,
		topic:  topic,
	}, nil
}

// Publish sends the summary to the MQTT broker.
func (p *RealPublisher) Publish(summary Summary) error {
	payload, err := FormatPayload(summary)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 1, retained so late subscribers see the latest summary
	token := p.client.Publish(p.topic, 1, true, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	return nil
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
