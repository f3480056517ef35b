// Package sensors turns raw analog voltages and DHT11 frames into
// temperature (°C) and soil moisture (fraction) readings.
package sensors

import (
	"github.com/thatsimonsguy/grow-controller/internal/adc"
	"github.com/thatsimonsguy/grow-controller/internal/config"
	"github.com/thatsimonsguy/grow-controller/internal/dht11"
)

// DHT11 is the subset of dht11.Sensor used here.
type DHT11 interface {
	Read() (dht11.Reading, error)
}

type Sensors struct {
	adc        adc.Reader
	dht        DHT11
	logicLevel float64

	thermChannel int
	therm        ThermistorCalibration
	soilChannel  int
	soil         MoistureCalibration
}

// New reads temperature from the thermistor unless a DHT11 is supplied.
func New(reader adc.Reader, dht DHT11, cfg config.Config) *Sensors {
	return &Sensors{
		adc:          reader,
		dht:          dht,
		logicLevel:   cfg.BoardLogicLevel,
		thermChannel: cfg.Thermistor.Channel,
		therm: ThermistorCalibration{
			DividerResistance:  cfg.Thermistor.DividerResistance,
			NominalResistance:  cfg.Thermistor.NominalResistance,
			NominalTemperature: cfg.Thermistor.NominalTemperature,
			ThermalConstant:    cfg.Thermistor.ThermalConstant,
			Topology:           Topology(cfg.Thermistor.Topology),
		},
		soilChannel: cfg.SoilMoisture.Channel,
		soil: MoistureCalibration{
			Voltage100:      cfg.SoilMoisture.Voltage100,
			VoltageNominal:  cfg.SoilMoisture.VoltageNominal,
			MoistureNominal: cfg.SoilMoisture.MoistureNominal,
		},
	}
}

func (s *Sensors) Temperature() (float64, error) {
	if s.dht != nil {
		r, err := s.dht.Read()
		if err != nil {
			return 0, err
		}
		return r.Temperature, nil
	}

	v, err := s.adc.Voltage(s.thermChannel)
	if err != nil {
		return 0, err
	}
	return ThermistorTemperature(v, s.logicLevel, s.therm)
}

func (s *Sensors) SoilMoisture() (float64, error) {
	v, err := s.adc.Voltage(s.soilChannel)
	if err != nil {
		return 0, err
	}
	return SoilMoisture(v, s.soil)
}
