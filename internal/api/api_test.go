package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/grow-controller/internal/config"
	"github.com/thatsimonsguy/grow-controller/internal/control"
	"github.com/thatsimonsguy/grow-controller/internal/fault"
	"github.com/thatsimonsguy/grow-controller/internal/gpio"
	"github.com/thatsimonsguy/grow-controller/internal/model"
	"github.com/thatsimonsguy/grow-controller/internal/state/statetest"
)

func setupTestServer(t *testing.T, cfg config.Config, history ...model.WateringRecord) (http.Handler, *statetest.Env) {
	env := statetest.New(cfg, history...)
	server := NewServer(control.New(env.Shared()))
	return server.Handler(), env
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestGetRelays(t *testing.T) {
	h, _ := setupTestServer(t, config.Default())

	w := do(t, h, http.MethodGet, "/api/relays", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var states []control.RelayStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &states))
	require.Len(t, states, 3)
	assert.Equal(t, model.Light, states[0].Device)
	assert.Equal(t, model.Off, states[0].State)
}

func TestSetRelay(t *testing.T) {
	h, env := setupTestServer(t, config.Default())

	w := do(t, h, http.MethodPut, "/api/relays/fan", RelayRequest{State: "on"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, gpio.Low, env.Line(model.Fan).Level)

	w = do(t, h, http.MethodGet, "/api/relays/fan", nil)
	var resp RelayResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, RelayResponse{Device: "fan", State: "on"}, resp)
}

func TestSetRelay_InvalidState(t *testing.T) {
	h, _ := setupTestServer(t, config.Default())

	w := do(t, h, http.MethodPut, "/api/relays/fan", RelayRequest{State: "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetRelay_UnknownDevice(t *testing.T) {
	h, _ := setupTestServer(t, config.Default())

	w := do(t, h, http.MethodPut, "/api/relays/heater", RelayRequest{State: "on"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestToggleRelay(t *testing.T) {
	h, env := setupTestServer(t, config.Default())

	w := do(t, h, http.MethodPost, "/api/relays/light/toggle", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, gpio.Low, env.Line(model.Light).Level)

	w = do(t, h, http.MethodGet, "/api/relays/light/toggle", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestLegacySwitchRoute(t *testing.T) {
	h, env := setupTestServer(t, config.Default())

	w := do(t, h, http.MethodGet, "/switch/lights/on", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, gpio.Low, env.Line(model.Light).Level)

	w = do(t, h, http.MethodGet, "/switch/lights", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnboundRelayIsUnprocessable(t *testing.T) {
	cfg := config.Default()
	cfg.Relay.PumpSlot = 3
	h, _ := setupTestServer(t, cfg)

	w := do(t, h, http.MethodPut, "/api/relays/pump", RelayRequest{State: "on"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(fault.KindConfiguration), resp.Kind)
}

func TestWater(t *testing.T) {
	cfg := config.Default()
	cfg.Pump.FlowRateGramsPerMs = 1000
	h, env := setupTestServer(t, cfg)
	env.Sensors.Moisture = 0.33

	w := do(t, h, http.MethodPost, "/api/water", WaterRequest{Grams: 120})
	assert.Equal(t, http.StatusOK, w.Code)

	var rec model.WateringRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, 120, rec.Amount)
	assert.Equal(t, 0.33, rec.MoistureBefore)
	assert.Equal(t, 1, env.State.History.Len())
}

func TestWater_NegativeGrams(t *testing.T) {
	h, _ := setupTestServer(t, config.Default())

	w := do(t, h, http.MethodPost, "/api/water", WaterRequest{Grams: -5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSensors(t *testing.T) {
	h, env := setupTestServer(t, config.Default())
	env.Sensors.SetTemperature(22.5)
	env.Sensors.Moisture = 0.5

	w := do(t, h, http.MethodGet, "/api/sensors", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"temperature":22.5,"soil_moisture":0.5}`, w.Body.String())
}

func TestSensors_HardwareFailure(t *testing.T) {
	h, env := setupTestServer(t, config.Default())
	env.Sensors.MoistureErr = fault.Hardware("read channel 1", errors.New("i2c nack"))

	w := do(t, h, http.MethodGet, "/api/sensors", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHistory(t *testing.T) {
	base := time.Unix(1700000000, 0)
	h, _ := setupTestServer(t, config.Default(),
		model.WateringRecord{Time: base, Amount: 100},
		model.WateringRecord{Time: base.Add(time.Hour), Amount: 200},
	)

	w := do(t, h, http.MethodGet, "/api/history?n=1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var records []model.WateringRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, 200, records[0].Amount)

	w = do(t, h, http.MethodGet, "/api/history?n=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDataLog(t *testing.T) {
	h, env := setupTestServer(t, config.Default())
	require.NoError(t, env.Store.AppendDataRecord(model.DataRecord{Temperature: 20}))

	w := do(t, h, http.MethodGet, "/api/datalog", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var records []model.DataRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	assert.Len(t, records, 1)
}

func TestGetImage(t *testing.T) {
	cfg := config.Default()
	cfg.DataLogging.ImagePath = filepath.Join(t.TempDir(), "growpi.image.jpeg")
	h, _ := setupTestServer(t, cfg)

	w := do(t, h, http.MethodGet, "/api/image", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, os.WriteFile(cfg.DataLogging.ImagePath, []byte{0xff, 0xd8, 0xff}, 0644))
	w = do(t, h, http.MethodGet, "/api/image", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
}

func TestCORSPreflight(t *testing.T) {
	h, _ := setupTestServer(t, config.Default())

	w := do(t, h, http.MethodOptions, "/api/relays/fan", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsRoute(t *testing.T) {
	h, _ := setupTestServer(t, config.Default())

	w := do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "growpi_temperature_celsius")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(fault.ErrNoHistory))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(&fault.LockError{Op: "x"}))
	assert.Equal(t, http.StatusBadGateway, statusFor(&fault.ChecksumError{}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
