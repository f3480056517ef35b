package sensors

import (
	"errors"
	"fmt"
	"math"

	"github.com/thatsimonsguy/grow-controller/internal/fault"
)

const (
	kelvinOffset = 273.15
	epsilon      = 1e-9
)

type Topology string

const (
	// thermistor between the supply and the sense node, divider resistor to ground
	ToSupply Topology = "to_supply"
	// thermistor between the sense node and ground
	ToGround Topology = "to_ground"
)

type ThermistorCalibration struct {
	DividerResistance  float64
	NominalResistance  float64
	NominalTemperature float64 // kelvin
	ThermalConstant    float64 // B
	Topology           Topology
}

func (c ThermistorCalibration) validate() error {
	switch {
	case c.DividerResistance <= 0:
		return errors.New("divider resistance must be positive")
	case c.NominalResistance <= 0:
		return errors.New("nominal resistance must be positive")
	case c.NominalTemperature <= 0:
		return errors.New("nominal temperature must be positive kelvin")
	case c.ThermalConstant == 0:
		return errors.New("thermal constant must be non-zero")
	}
	switch c.Topology {
	case ToSupply, ToGround, "":
		return nil
	default:
		return fmt.Errorf("unknown topology %q", c.Topology)
	}
}

// ThermistorTemperature converts the divider sense voltage v to degrees
// Celsius with the Beta form of the Steinhart-Hart equation.
func ThermistorTemperature(v, logicLevel float64, cal ThermistorCalibration) (float64, error) {
	if err := cal.validate(); err != nil {
		return 0, fault.Configuration("thermistor calibration", err)
	}
	if logicLevel <= 0 {
		return 0, fault.Configuration("thermistor calibration", errors.New("logic level must be positive"))
	}
	if v <= 0 || v >= logicLevel {
		return 0, fault.Hardware("thermistor", fmt.Errorf("sense voltage %.4fV outside (0, %.2fV)", v, logicLevel))
	}

	ratio := logicLevel/v - 1
	r := cal.DividerResistance * ratio
	if cal.Topology == ToGround {
		r = cal.DividerResistance / ratio
	}

	inv := 1/cal.NominalTemperature + math.Log(r/cal.NominalResistance)/cal.ThermalConstant
	return 1/inv - kelvinOffset, nil
}

type MoistureCalibration struct {
	Voltage100      float64 // probe voltage in saturated soil
	VoltageNominal  float64
	MoistureNominal float64 // fraction at VoltageNominal
}

// SoilMoisture maps probe voltage linearly onto a moisture fraction through
// the two calibration points (Vn, Mn) and (V100, 1).
func SoilMoisture(v float64, cal MoistureCalibration) (float64, error) {
	d := 1 - cal.MoistureNominal
	if math.Abs(d) < epsilon {
		return 0, &fault.DegenerateCalibrationError{Field: "moisture_nominal", Denominator: d}
	}
	v0 := (cal.VoltageNominal - cal.Voltage100*cal.MoistureNominal) / d

	span := cal.Voltage100 - v0
	if math.Abs(span) < epsilon {
		return 0, &fault.DegenerateCalibrationError{Field: "voltage_100", Denominator: span}
	}
	return (v - v0) / span, nil
}
