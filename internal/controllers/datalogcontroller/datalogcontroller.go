package datalogcontroller

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/grow-controller/internal/model"
	"github.com/thatsimonsguy/grow-controller/internal/state"
	"github.com/thatsimonsguy/grow-controller/internal/store"
	"github.com/thatsimonsguy/grow-controller/internal/telemetry"
)

const DisabledPoll = time.Hour

var sleep = time.Sleep

func RunDataLogController(shared *state.Shared) {
	go func() {
		log.Info().Msg("Starting data log controller")

		for {
			sleep(step(shared))
		}
	}()
}

// step logs one record when logging is enabled and returns the wait before
// the next one. The frequency is reread every time.
func step(shared *state.Shared) time.Duration {
	freq := shared.Config().DataLogging.FrequencyMins
	if freq == 0 {
		return DisabledPoll
	}
	if _, err := runCycle(shared); err != nil {
		log.Warn().Err(err).Msg("Data log cycle failed")
		telemetry.CycleError("datalog", err)
	}
	return time.Duration(freq) * time.Minute
}

// runCycle samples the sensors under the state and writes the record
// after releasing it.
func runCycle(shared *state.Shared) (model.DataRecord, error) {
	var rec model.DataRecord
	var st store.Store
	err := shared.Do("data logging", func(p *state.ProgramState) error {
		temp, err := p.Sensors.Temperature()
		if err != nil {
			return err
		}
		moisture, err := p.Sensors.SoilMoisture()
		if err != nil {
			return err
		}
		rec = model.DataRecord{Timestamp: p.Now(), Temperature: temp, SoilMoisture: moisture}
		st = p.Store
		return nil
	})
	if err != nil {
		return rec, err
	}

	telemetry.Readings(rec)
	if err := st.AppendDataRecord(rec); err != nil {
		return rec, err
	}

	log.Debug().
		Float64("temp", rec.Temperature).
		Float64("soil_moisture", rec.SoilMoisture).
		Msg("Logged sensor data")
	return rec, nil
}
