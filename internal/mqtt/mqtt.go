// Package mqtt publishes sensor readings and waterings to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/thatsimonsguy/grow-controller/internal/model"
)

const (
	TopicReadings = "readings"
	TopicWatering = "watering"
	TopicRelay    = "relay"
)

// Publisher publishes controller events. Errors should be logged by the
// caller and never stop a control loop.
type Publisher interface {
	PublishReadings(r model.DataRecord) error
	PublishWatering(r model.WateringRecord) error
	PublishRelay(a model.Actuator, s model.SwitchState) error
	Close() error
}

type ReadingsPayload struct {
	Timestamp    string  `json:"timestamp"`
	Temperature  float64 `json:"temperature"`
	SoilMoisture float64 `json:"soil_moisture"`
}

type WateringPayload struct {
	Timestamp      string  `json:"timestamp"`
	Amount         int     `json:"amount"`
	MoistureBefore float64 `json:"moisture_before_watering"`
}

type RelayPayload struct {
	Device string `json:"device"`
	State  string `json:"state"`
}

func FormatReadings(r model.DataRecord) ([]byte, error) {
	return json.Marshal(ReadingsPayload{
		Timestamp:    r.Timestamp.UTC().Format(time.RFC3339),
		Temperature:  r.Temperature,
		SoilMoisture: r.SoilMoisture,
	})
}

func FormatWatering(r model.WateringRecord) ([]byte, error) {
	return json.Marshal(WateringPayload{
		Timestamp:      r.Time.UTC().Format(time.RFC3339),
		Amount:         r.Amount,
		MoistureBefore: r.MoistureBefore,
	})
}

func FormatRelay(a model.Actuator, s model.SwitchState) ([]byte, error) {
	return json.Marshal(RelayPayload{Device: string(a), State: string(s)})
}

// Topic joins the configured prefix and a leaf topic.
func Topic(prefix, leaf string) string {
	if prefix == "" {
		return leaf
	}
	return prefix + "/" + leaf
}

// Nop discards everything. It is used when no broker is configured.
type Nop struct{}

func (Nop) PublishReadings(model.DataRecord) error               { return nil }
func (Nop) PublishWatering(model.WateringRecord) error           { return nil }
func (Nop) PublishRelay(model.Actuator, model.SwitchState) error { return nil }
func (Nop) Close() error                                         { return nil }
