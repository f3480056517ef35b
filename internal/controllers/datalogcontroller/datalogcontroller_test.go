package datalogcontroller

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/grow-controller/internal/config"
	"github.com/thatsimonsguy/grow-controller/internal/fault"
	"github.com/thatsimonsguy/grow-controller/internal/mqtt"
	"github.com/thatsimonsguy/grow-controller/internal/state/statetest"
	"github.com/thatsimonsguy/grow-controller/internal/telemetry"
)

func TestRunCycle_AppendsAndPublishes(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	stop := telemetry.Start(pub)

	env := statetest.New(config.Default())
	env.Sensors.SetTemperature(23.25)
	env.Sensors.Moisture = 0.41

	rec, err := runCycle(env.Shared())
	stop()
	require.NoError(t, err)

	assert.Equal(t, env.Clock.Now(), rec.Timestamp)
	assert.Equal(t, 23.25, rec.Temperature)
	assert.Equal(t, 0.41, rec.SoilMoisture)
	require.Len(t, env.Store.Data, 1)
	assert.Equal(t, rec, env.Store.Data[0])
	assert.Equal(t, 1, pub.ReadingsCount())
}

func TestRunCycle_SensorFailureWritesNothing(t *testing.T) {
	env := statetest.New(config.Default())
	env.Sensors.MoistureErr = fault.Hardware("read channel 1", errors.New("nack"))

	_, err := runCycle(env.Shared())
	assert.Equal(t, fault.KindHardware, fault.KindOf(err))
	assert.Empty(t, env.Store.Data)
}

func TestRunCycle_StoreFailureIsPersistence(t *testing.T) {
	env := statetest.New(config.Default())
	env.Store.AppendErr = errors.New("read-only file system")

	_, err := runCycle(env.Shared())
	assert.Equal(t, fault.KindPersistence, fault.KindOf(err))
}

func TestStep(t *testing.T) {
	cfg := config.Default()
	cfg.DataLogging.FrequencyMins = 0
	env := statetest.New(cfg)
	assert.Equal(t, DisabledPoll, step(env.Shared()))
	assert.Empty(t, env.Store.Data)

	cfg.DataLogging.FrequencyMins = 10
	env = statetest.New(cfg)
	assert.Equal(t, 10*time.Minute, step(env.Shared()))
	assert.Len(t, env.Store.Data, 1)
}
