package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/thatsimonsguy/grow-controller/internal/config"
	"github.com/thatsimonsguy/grow-controller/internal/model"
)

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client paho.Client
	prefix string
}

// NewRealPublisher connects to cfg.Broker. Readings and waterings are
// retained so a dashboard sees the latest value on subscribe.
func NewRealPublisher(cfg config.MQTT) (*RealPublisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &RealPublisher{client: client, prefix: cfg.TopicPrefix}, nil
}

func (p *RealPublisher) publish(leaf string, retained bool, payload []byte) error {
	token := p.client.Publish(Topic(p.prefix, leaf), 0, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s timeout", leaf)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", leaf, err)
	}
	return nil
}

func (p *RealPublisher) PublishReadings(r model.DataRecord) error {
	payload, err := FormatReadings(r)
	if err != nil {
		return fmt.Errorf("format readings: %w", err)
	}
	return p.publish(TopicReadings, true, payload)
}

func (p *RealPublisher) PublishWatering(r model.WateringRecord) error {
	payload, err := FormatWatering(r)
	if err != nil {
		return fmt.Errorf("format watering: %w", err)
	}
	return p.publish(TopicWatering, true, payload)
}

func (p *RealPublisher) PublishRelay(a model.Actuator, s model.SwitchState) error {
	payload, err := FormatRelay(a, s)
	if err != nil {
		return fmt.Errorf("format relay: %w", err)
	}
	return p.publish(TopicRelay+"/"+string(a), true, payload)
}

func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
