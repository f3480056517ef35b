package sensors

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/grow-controller/internal/adc"
	"github.com/thatsimonsguy/grow-controller/internal/config"
	"github.com/thatsimonsguy/grow-controller/internal/dht11"
	"github.com/thatsimonsguy/grow-controller/internal/fault"
)

var refThermistor = ThermistorCalibration{
	DividerResistance:  9700,
	NominalResistance:  10000,
	NominalTemperature: 298.15,
	ThermalConstant:    3950,
	Topology:           ToSupply,
}

// voltage at which the thermistor reads exactly its nominal resistance
func nominalVoltage(cal ThermistorCalibration, vs float64) float64 {
	if cal.Topology == ToGround {
		return vs / (1 + cal.DividerResistance/cal.NominalResistance)
	}
	return vs / (1 + cal.NominalResistance/cal.DividerResistance)
}

func TestThermistor_NominalPoint(t *testing.T) {
	for _, topo := range []Topology{ToSupply, ToGround} {
		cal := refThermistor
		cal.Topology = topo

		temp, err := ThermistorTemperature(nominalVoltage(cal, 3.3), 3.3, cal)
		require.NoError(t, err, topo)
		assert.InDelta(t, 25.0, temp, 1e-6, topo)
	}
}

func TestThermistor_Monotonic(t *testing.T) {
	// to_supply: more sense voltage means less thermistor resistance, so warmer
	prev := math.Inf(-1)
	for v := 0.5; v < 3.0; v += 0.25 {
		temp, err := ThermistorTemperature(v, 3.3, refThermistor)
		require.NoError(t, err)
		assert.Greater(t, temp, prev)
		prev = temp
	}
}

func TestThermistor_VoltageOutOfRange(t *testing.T) {
	for _, v := range []float64{0, -0.1, 3.3, 4} {
		_, err := ThermistorTemperature(v, 3.3, refThermistor)
		assert.Equal(t, fault.KindHardware, fault.KindOf(err), "v=%v", v)
	}
}

func TestThermistor_BadCalibration(t *testing.T) {
	cal := refThermistor
	cal.ThermalConstant = 0
	_, err := ThermistorTemperature(1.6, 3.3, cal)
	assert.Equal(t, fault.KindConfiguration, fault.KindOf(err))

	cal = refThermistor
	cal.Topology = "sideways"
	_, err = ThermistorTemperature(1.6, 3.3, cal)
	assert.Equal(t, fault.KindConfiguration, fault.KindOf(err))
}

var refSoil = MoistureCalibration{Voltage100: 1.2, VoltageNominal: 2.0, MoistureNominal: 0.4}

func TestSoilMoisture_FixedPoints(t *testing.T) {
	m, err := SoilMoisture(refSoil.Voltage100, refSoil)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, m, 1e-9)

	m, err = SoilMoisture(refSoil.VoltageNominal, refSoil)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, m, 1e-9)

	v0 := (refSoil.VoltageNominal - refSoil.Voltage100*refSoil.MoistureNominal) / (1 - refSoil.MoistureNominal)
	m, err = SoilMoisture(v0, refSoil)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, m, 1e-9)
}

func TestSoilMoisture_Linear(t *testing.T) {
	a, _ := SoilMoisture(1.4, refSoil)
	b, _ := SoilMoisture(1.6, refSoil)
	c, _ := SoilMoisture(1.8, refSoil)
	assert.InDelta(t, b-a, c-b, 1e-9)
}

func TestSoilMoisture_Degenerate(t *testing.T) {
	var dc *fault.DegenerateCalibrationError

	_, err := SoilMoisture(1.5, MoistureCalibration{Voltage100: 1.2, VoltageNominal: 2.0, MoistureNominal: 1})
	require.ErrorAs(t, err, &dc)
	assert.Equal(t, "moisture_nominal", dc.Field)

	// Vn == V100 collapses V0 onto V100
	_, err = SoilMoisture(1.5, MoistureCalibration{Voltage100: 1.2, VoltageNominal: 1.2, MoistureNominal: 0.4})
	require.ErrorAs(t, err, &dc)
	assert.Equal(t, "voltage_100", dc.Field)
}

type fakeDHT struct {
	reading dht11.Reading
	err     error
}

func (f fakeDHT) Read() (dht11.Reading, error) { return f.reading, f.err }

func TestSensors_ThermistorPath(t *testing.T) {
	cfg := config.Default()
	reader := adc.NewFake(map[int]float64{
		cfg.Thermistor.Channel:   nominalVoltage(refThermistor, cfg.BoardLogicLevel),
		cfg.SoilMoisture.Channel: cfg.SoilMoisture.Voltage100,
	})
	s := New(reader, nil, cfg)

	temp, err := s.Temperature()
	require.NoError(t, err)
	assert.InDelta(t, 25.0, temp, 1e-6)

	m, err := s.SoilMoisture()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, m, 1e-9)
}

func TestSensors_DHT11Path(t *testing.T) {
	cfg := config.Default()
	reader := adc.NewFake(map[int]float64{})
	s := New(reader, fakeDHT{reading: dht11.Reading{Temperature: 22.4}}, cfg)

	temp, err := s.Temperature()
	require.NoError(t, err)
	assert.Equal(t, 22.4, temp)
	assert.Empty(t, reader.Reads, "thermistor channel must not be read")

	s = New(reader, fakeDHT{err: &fault.ChecksumError{}}, cfg)
	_, err = s.Temperature()
	assert.Equal(t, fault.KindProtocol, fault.KindOf(err))
}

func TestSensors_ADCError(t *testing.T) {
	reader := adc.NewFake(map[int]float64{})
	reader.Err = errors.New("bus stuck")
	s := New(reader, nil, config.Default())

	_, err := s.SoilMoisture()
	assert.Equal(t, fault.KindHardware, fault.KindOf(err))
}
