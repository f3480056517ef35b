package mqtt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/grow-controller/internal/model"
)

func TestFormatReadings(t *testing.T) {
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	payload, err := FormatReadings(model.DataRecord{Timestamp: ts, Temperature: 24.5, SoilMoisture: 0.42})
	require.NoError(t, err)
	assert.JSONEq(t, `{"timestamp":"2024-06-01T10:00:00Z","temperature":24.5,"soil_moisture":0.42}`, string(payload))
}

func TestFormatWatering(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	payload, err := FormatWatering(model.WateringRecord{Time: ts, Amount: 200, MoistureBefore: 0.3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"timestamp":"2023-11-14T22:13:20Z","amount":200,"moisture_before_watering":0.3}`, string(payload))
}

func TestFormatRelay(t *testing.T) {
	payload, err := FormatRelay(model.Pump, model.On)
	require.NoError(t, err)
	assert.JSONEq(t, `{"device":"pump","state":"on"}`, string(payload))
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "growpi/readings", Topic("growpi", TopicReadings))
	assert.Equal(t, "readings", Topic("", TopicReadings))
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()
	require.NoError(t, f.PublishReadings(model.DataRecord{Temperature: 20}))
	require.NoError(t, f.PublishRelay(model.Fan, model.Off))
	assert.Equal(t, 1, f.ReadingsCount())
	assert.Equal(t, []RelayPayload{{Device: "fan", State: "off"}}, f.Relays)

	f.PublishError = assert.AnError
	assert.ErrorIs(t, f.PublishWatering(model.WateringRecord{}), assert.AnError)
	assert.Equal(t, 0, f.WateringsCount())
}

var _ Publisher = (*RealPublisher)(nil)
var _ Publisher = (*FakePublisher)(nil)
var _ Publisher = Nop{}
