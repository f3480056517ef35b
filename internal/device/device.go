package device

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/grow-controller/internal/fault"
	"github.com/thatsimonsguy/grow-controller/internal/model"
	"github.com/thatsimonsguy/grow-controller/internal/state"
	"github.com/thatsimonsguy/grow-controller/internal/telemetry"
)

var sleep = time.Sleep

// All functions here expect the caller to hold the program state.

func Switch(p *state.ProgramState, a model.Actuator, s model.SwitchState) error {
	log.Info().Str("device", string(a)).Str("state", string(s)).Msg("Switching relay")
	if err := p.Relay.Switch(p.Slot(a), s); err != nil {
		return fmt.Errorf("switch %s %s: %w", a, s, err)
	}
	telemetry.Relay(a, s)
	return nil
}

func SwitchLights(p *state.ProgramState, s model.SwitchState) error {
	return Switch(p, model.Light, s)
}

func SwitchFan(p *state.ProgramState, s model.SwitchState) error {
	return Switch(p, model.Fan, s)
}

func SwitchPump(p *state.ProgramState, s model.SwitchState) error {
	return Switch(p, model.Pump, s)
}

func State(p *state.ProgramState, a model.Actuator) (model.SwitchState, error) {
	s, err := p.Relay.State(p.Slot(a))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", a, err)
	}
	return s, nil
}

func Toggle(p *state.ProgramState, a model.Actuator) (model.SwitchState, error) {
	s, err := p.Relay.Toggle(p.Slot(a))
	if err != nil {
		return "", fmt.Errorf("toggle %s: %w", a, err)
	}
	telemetry.Relay(a, s)
	log.Info().Str("device", string(a)).Str("state", string(s)).Msg("Toggled relay")
	return s, nil
}

// PumpDuration converts a water amount into pump run time for a flow rate
// given in grams per millisecond.
func PumpDuration(grams int, flowGramsPerMs float64) (time.Duration, error) {
	if flowGramsPerMs <= 0 || math.IsNaN(flowGramsPerMs) {
		return 0, &fault.DegenerateCalibrationError{Field: "flow_rate_grams_per_ms", Denominator: flowGramsPerMs}
	}
	if grams < 0 {
		return 0, fault.Configuration("pump duration", fmt.Errorf("negative amount %d", grams))
	}
	ms := float64(grams) / flowGramsPerMs
	return time.Duration(math.Round(ms * float64(time.Millisecond))), nil
}

// PumpWater measures soil moisture, runs the pump for the time needed to
// deliver grams and records the watering. The pump runs while the caller
// holds the state so nothing else can drive it mid-run. A failed save still
// leaves the record in memory.
func PumpWater(p *state.ProgramState, grams int) (model.WateringRecord, error) {
	dur, err := PumpDuration(grams, p.Config.Pump.FlowRateGramsPerMs)
	if err != nil {
		return model.WateringRecord{}, err
	}
	if limit := time.Duration(p.Config.PumpSafetyMaxSecs) * time.Second; limit > 0 && dur > limit {
		return model.WateringRecord{}, fault.Configuration("pump water",
			fmt.Errorf("%d g needs %s of pumping, above the %s limit", grams, dur, limit))
	}

	moisture, err := p.Sensors.SoilMoisture()
	if err != nil {
		return model.WateringRecord{}, fmt.Errorf("read moisture before watering: %w", err)
	}

	log.Info().Int("grams", grams).Dur("duration", dur).Float64("moisture", moisture).Msg("Starting pump")
	if err := SwitchPump(p, model.On); err != nil {
		return model.WateringRecord{}, err
	}
	sleep(dur)
	if err := SwitchPump(p, model.Off); err != nil {
		// one more attempt before reporting a stuck pump
		if retryErr := SwitchPump(p, model.Off); retryErr != nil {
			return model.WateringRecord{}, errors.Join(err, retryErr)
		}
	}

	rec := model.WateringRecord{Time: p.Now(), Amount: grams, MoistureBefore: moisture}
	p.History.Append(rec)
	telemetry.Watering(rec)
	if err := p.Store.SaveWateringRecords(p.History.Records()); err != nil {
		log.Error().Err(err).Msg("Watering recorded in memory but not persisted")
		return rec, err
	}
	return rec, nil
}
