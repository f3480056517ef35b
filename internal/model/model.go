package model

import (
	"fmt"
	"strings"
	"time"
)

type SwitchState string

const (
	On  SwitchState = "on"
	Off SwitchState = "off"
)

func (s SwitchState) Invert() SwitchState {
	if s == On {
		return Off
	}
	return On
}

func ParseSwitchState(s string) (SwitchState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "1", "true":
		return On, nil
	case "off", "0", "false":
		return Off, nil
	default:
		return "", fmt.Errorf("invalid switch state %q (valid: on, off)", s)
	}
}

type Actuator string

const (
	Light Actuator = "light"
	Fan   Actuator = "fan"
	Pump  Actuator = "pump"
)

var Actuators = []Actuator{Light, Fan, Pump}

// ParseActuator accepts the plural "lights" used by older clients.
func ParseActuator(s string) (Actuator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "light", "lights":
		return Light, nil
	case "fan":
		return Fan, nil
	case "pump":
		return Pump, nil
	default:
		return "", fmt.Errorf("invalid actuator %q (valid: light, fan, pump)", s)
	}
}

type WateringRecord struct {
	Time           time.Time `json:"time"`
	Amount         int       `json:"amount"`
	MoistureBefore float64   `json:"moisture_before_watering"`
}

type DataRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	Temperature  float64   `json:"temperature"`
	SoilMoisture float64   `json:"soil_moisture"`
}

type Readings struct {
	Temperature  float64 `json:"temperature"`
	SoilMoisture float64 `json:"soil_moisture"`
}
